package statement

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const ofxV1Sample = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240101120000
<LANGUAGE>ENG
<FI>
<ORG>TESTBANK
<FID>12345
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>AUD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>9876543210
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000
<DTEND>20240131235959
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105120000
<TRNAMT>-50.00
<FITID>TXN001
<NAME>Coffee Shop
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240115120000
<TRNAMT>1000.00
<FITID>TXN002
<MEMO>Paycheck
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2000.00
<DTASOF>20240131235959
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const ofxV2Sample = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<?OFX OFXHEADER="200" VERSION="202" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>
<OFX>
<SIGNONMSGSRSV1><SONRS><STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS><DTSERVER>20240101120000</DTSERVER><LANGUAGE>ENG</LANGUAGE></SONRS></SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1</TRNUID>
<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
<CCSTMTRS>
<CURDEF>AUD</CURDEF>
<CCACCTFROM><ACCTID>XXXX-1234</ACCTID></CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000</DTSTART>
<DTEND>20240131235959</DTEND>
<STMTTRN>
<TRNTYPE>DEBIT</TRNTYPE>
<DTPOSTED>20240110120000</DTPOSTED>
<TRNAMT>-12.34</TRNAMT>
<FITID>CC001</FITID>
<NAME>Cafe Nero</NAME>
</STMTTRN>
</BANKTRANLIST>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestOFXParseSGML(t *testing.T) {
	t.Parallel()

	p := NewOFXParser()
	require.True(t, p.CanParse("statement.ofx", []byte(ofxV1Sample[:64])))

	st, err := p.Parse(context.Background(), strings.NewReader(ofxV1Sample))
	require.NoError(t, err)
	require.Empty(t, st.Skipped)
	require.Len(t, st.Records, 2)

	first := st.Records[0]
	require.Equal(t, "9876543210", first.AccountRef)
	require.Equal(t, "TXN001", first.ExternalRef)
	require.Equal(t, "Coffee Shop", first.Description)
	require.True(t, first.Amount.Equal(decimal.RequireFromString("-50.00")), first.Amount.String())
	require.Equal(t, 2024, first.Date.Year())

	// name missing, memo fallback
	require.Equal(t, "Paycheck", st.Records[1].Description)
	require.True(t, st.Records[1].Amount.Equal(decimal.RequireFromString("1000.00")))
}

func TestOFXParseXML(t *testing.T) {
	t.Parallel()

	p := NewOFXParser()
	require.True(t, p.CanParse("card.qfx", []byte(ofxV2Sample[:128])))

	st, err := p.Parse(context.Background(), strings.NewReader(ofxV2Sample))
	require.NoError(t, err)
	require.Len(t, st.Records, 1)
	rec := st.Records[0]
	require.Equal(t, "XXXX-1234", rec.AccountRef)
	require.Equal(t, "CC001", rec.ExternalRef)
	require.Equal(t, "Cafe Nero", rec.Description)
	require.True(t, rec.Amount.Equal(decimal.RequireFromString("-12.34")))
}

func TestOFXUnsupportedVersion(t *testing.T) {
	t.Parallel()

	payload := strings.Replace(ofxV1Sample, "OFXHEADER:100", "OFXHEADER:300", 1)
	_, err := NewOFXParser().Parse(context.Background(), strings.NewReader(payload))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	xmlPayload := strings.Replace(ofxV2Sample, `OFXHEADER="200"`, `OFXHEADER="300"`, 1)
	_, err = NewOFXParser().Parse(context.Background(), strings.NewReader(xmlPayload))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = NewOFXParser().Parse(context.Background(), strings.NewReader("<OFX>no header</OFX>"))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestOFXCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOFXParser().Parse(ctx, strings.NewReader(ofxV1Sample))
	require.ErrorIs(t, err, context.Canceled)
}

func TestOFXCanParseRejectsOther(t *testing.T) {
	t.Parallel()
	p := NewOFXParser()
	require.False(t, p.CanParse("statement.csv", []byte("Date,Amount,Description\n")))
}
