package statement

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed dialects.yaml
var embeddedDialects []byte

// columnMap holds zero-based field positions; -1 means absent.
type columnMap struct {
	Date        int `yaml:"date"`
	Description int `yaml:"description"`
	Amount      int `yaml:"amount"`
	Debit       int `yaml:"debit"`
	Credit      int `yaml:"credit"`
	Account     int `yaml:"account"`
	Reference   int `yaml:"reference"`
}

// UnmarshalYAML defaults unset positions to -1 so index 0 stays usable.
func (c *columnMap) UnmarshalYAML(value *yaml.Node) error {
	type plain columnMap
	r := plain{Date: -1, Description: -1, Amount: -1, Debit: -1, Credit: -1, Account: -1, Reference: -1}
	if err := value.Decode(&r); err != nil {
		return err
	}
	*c = columnMap(r)
	return nil
}

// Dialect is the declarative description of one delimited source.
type Dialect struct {
	Name         string    `yaml:"name"`
	Signature    string    `yaml:"signature"`
	Hints        []string  `yaml:"hints"`
	SkipLines    int       `yaml:"skip_lines"`
	DateLayout   string    `yaml:"date_layout"`
	NegateAmount bool      `yaml:"negate_amount"`
	Columns      columnMap `yaml:"columns"`
}

type dialectFile struct {
	Dialects []Dialect `yaml:"dialects"`
}

// loadDialects parses the embedded dialect table into one parser per source.
func loadDialects() ([]Parser, error) {
	var df dialectFile
	if err := yaml.Unmarshal(embeddedDialects, &df); err != nil {
		return nil, fmt.Errorf("parse dialect table: %w", err)
	}
	out := make([]Parser, 0, len(df.Dialects))
	for i := range df.Dialects {
		d := df.Dialects[i]
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("dialect %q: %w", d.Name, err)
		}
		out = append(out, &DelimitedParser{dialect: d})
	}
	return out, nil
}

func (d *Dialect) validate() error {
	if d.Name == "" {
		return fmt.Errorf("name required")
	}
	if d.DateLayout == "" {
		return fmt.Errorf("date_layout required")
	}
	if d.Columns.Date < 0 || d.Columns.Description < 0 {
		return fmt.Errorf("columns need date and description")
	}
	if d.Columns.Amount < 0 && d.Columns.Debit < 0 && d.Columns.Credit < 0 {
		return fmt.Errorf("columns need amount or debit/credit")
	}
	return nil
}

// DelimitedParser reads one delimited dialect through encoding/csv, which
// re-joins quoted fields split across delimiters.
type DelimitedParser struct {
	dialect Dialect
}

func (p *DelimitedParser) Name() string { return "delimited:" + p.dialect.Name }

// CanParse matches either the dialect's header signature in the payload's
// first lines or the caller's source hint. Never the file extension.
func (p *DelimitedParser) CanParse(sourceHint string, header []byte) bool {
	hint := strings.ToLower(strings.TrimSpace(sourceHint))
	for _, h := range p.dialect.Hints {
		if hint != "" && strings.Contains(hint, h) {
			return true
		}
	}
	if p.dialect.Signature == "" {
		return false
	}
	sc := bufio.NewScanner(strings.NewReader(string(header)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, p.dialect.Signature) {
			return true
		}
	}
	return false
}

// Parse decodes the payload row by row. Malformed rows are skipped and
// reported; only a payload with no parseable rows at all fails.
func (p *DelimitedParser) Parse(ctx context.Context, r io.Reader) (*Statement, error) {
	br := bufio.NewReader(r)
	for i := 0; i < p.dialect.SkipLines; i++ {
		if _, err := br.ReadString('\n'); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("skip header: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	st := &Statement{}
	line := p.dialect.SkipLines
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			st.Skipped = append(st.Skipped, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		rec, err := p.dialect.extract(fields)
		if err != nil {
			st.Skipped = append(st.Skipped, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		st.Records = append(st.Records, rec)
	}
	if len(st.Records) == 0 && len(st.Skipped) > 0 {
		return nil, fmt.Errorf("statement: no parseable rows in %s payload (%d bad rows)", p.dialect.Name, len(st.Skipped))
	}
	return st, nil
}

func (d *Dialect) extract(fields []string) (Record, error) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	dateStr := get(d.Columns.Date)
	if dateStr == "" {
		return Record{}, fmt.Errorf("missing date field")
	}
	date, err := time.Parse(d.DateLayout, dateStr)
	if err != nil {
		return Record{}, fmt.Errorf("date %q: %w", dateStr, err)
	}

	desc := get(d.Columns.Description)
	if desc == "" {
		return Record{}, fmt.Errorf("missing description field")
	}

	amount, err := d.extractAmount(get)
	if err != nil {
		return Record{}, err
	}
	if d.NegateAmount {
		amount = amount.Neg()
	}

	return Record{
		AccountRef:  get(d.Columns.Account),
		Date:        date.UTC(),
		Amount:      amount,
		Description: desc,
		ExternalRef: get(d.Columns.Reference),
	}, nil
}

func (d *Dialect) extractAmount(get func(int) string) (decimal.Decimal, error) {
	if d.Columns.Amount >= 0 {
		raw := get(d.Columns.Amount)
		if raw == "" {
			return decimal.Zero, fmt.Errorf("missing amount field")
		}
		return parseMoney(raw)
	}
	// debit/credit pair: debit is outflow (negative), credit inflow
	if d.Columns.Debit >= 0 {
		if raw := get(d.Columns.Debit); raw != "" {
			v, err := parseMoney(raw)
			if err != nil {
				return decimal.Zero, err
			}
			return v.Neg(), nil
		}
	}
	if d.Columns.Credit >= 0 {
		if raw := get(d.Columns.Credit); raw != "" {
			return parseMoney(raw)
		}
	}
	return decimal.Zero, fmt.Errorf("missing debit/credit value")
}

// parseMoney handles the quoting conventions seen across sources: currency
// symbols, thousands separators, and parenthesized negatives.
func parseMoney(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "-$")
	if strings.HasPrefix(raw, "-$") {
		neg = true
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
