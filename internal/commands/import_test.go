package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const anzStatement = `3/02/2026,203.92,PAYMENT THANKYOU 528417
2/02/2026,-20.00,DAN MURPHY'S SPOTSWOOD
1/02/2026,-42.50,COFFEE SHOP MELBOURNE`

func TestImportCommandEndToEnd(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ENVELOPES_DATABASE_PATH", filepath.Join(home, "envelopes.db"))

	path := filepath.Join(t.TempDir(), "anz-feb.csv")
	require.NoError(t, os.WriteFile(path, []byte(anzStatement), 0o644))

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"import", path, "--account", "cheque-1"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.Contains(t, out.String(), "100%")
	require.Contains(t, out.String(), "3 imported, 0 duplicates, 0 skipped")
}

func TestImportCommandHonorsCancelledContext(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ENVELOPES_DATABASE_PATH", filepath.Join(home, "envelopes.db"))

	path := filepath.Join(t.TempDir(), "anz-feb.csv")
	require.NoError(t, os.WriteFile(path, []byte(anzStatement), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"import", path, "--account", "cheque-1"})
	require.Error(t, cmd.ExecuteContext(ctx))
}
