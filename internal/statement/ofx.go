package statement

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// OFXParser handles the two bank-export dialects: OFX 1.x (SGML header, flat
// transaction list) and OFX 2.x (XML document). Stateless, safe for
// concurrent use.
type OFXParser struct{}

func NewOFXParser() *OFXParser { return &OFXParser{} }

func (p *OFXParser) Name() string { return "ofx" }

var (
	sgmlVersionRe = regexp.MustCompile(`(?m)^OFXHEADER:(\d+)`)
	xmlVersionRe  = regexp.MustCompile(`OFXHEADER="(\d+)"`)
)

// CanParse looks for OFX markers in the payload header.
func (p *OFXParser) CanParse(sourceHint string, header []byte) bool {
	up := strings.ToUpper(string(header))
	return strings.Contains(up, "OFXHEADER") || strings.Contains(up, "<OFX>")
}

// Parse decodes an OFX payload after checking its version marker. Version
// 1xx selects the flat SGML path, 2xx the nested XML path; anything else is
// ErrUnsupportedVersion. The actual extraction is shared since ofxgo
// normalizes both shapes into one response tree.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader) (*Statement, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ofx payload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkOFXVersion(content); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse ofx payload (%d bytes): %w", len(content), err)
	}

	st := &Statement{}
	for _, msg := range resp.Bank {
		bank, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			st.Skipped = append(st.Skipped, fmt.Errorf("unexpected bank message %T", msg))
			continue
		}
		if bank.BankTranList == nil {
			continue
		}
		p.appendTransactions(st, bank.BankAcctFrom.AcctID.String(), bank.BankTranList.Transactions)
	}
	for _, msg := range resp.CreditCard {
		cc, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			st.Skipped = append(st.Skipped, fmt.Errorf("unexpected credit card message %T", msg))
			continue
		}
		if cc.BankTranList == nil {
			continue
		}
		p.appendTransactions(st, cc.CCAcctFrom.AcctID.String(), cc.BankTranList.Transactions)
	}
	if len(st.Records) == 0 && len(st.Skipped) == 0 {
		return nil, fmt.Errorf("statement: ofx payload contains no bank or credit card statements")
	}
	return st, nil
}

func (p *OFXParser) appendTransactions(st *Statement, accountRef string, txns []ofxgo.Transaction) {
	for _, txn := range txns {
		rec, err := extractOFXTransaction(accountRef, txn)
		if err != nil {
			st.Skipped = append(st.Skipped, err)
			continue
		}
		st.Records = append(st.Records, rec)
	}
}

func extractOFXTransaction(accountRef string, txn ofxgo.Transaction) (Record, error) {
	ref := txn.FiTID.String()
	date := txn.DtPosted.Time
	if date.IsZero() {
		date = txn.DtUser.Time
	}
	if date.IsZero() {
		return Record{}, fmt.Errorf("transaction %s has no posted or user date", ref)
	}
	desc := strings.TrimSpace(txn.Name.String())
	if desc == "" {
		desc = strings.TrimSpace(txn.Memo.String())
	}
	if desc == "" {
		return Record{}, fmt.Errorf("transaction %s has no name or memo", ref)
	}
	amount := decimal.NewFromBigRat(&txn.TrnAmt.Rat, 2)
	return Record{
		AccountRef:  accountRef,
		Date:        date,
		Amount:      amount,
		Description: desc,
		ExternalRef: ref,
	}, nil
}

// checkOFXVersion validates the OFXHEADER marker: 1xx (SGML) and 2xx (XML)
// are supported; anything else fails the payload.
func checkOFXVersion(content []byte) error {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	var marker string
	if m := sgmlVersionRe.FindSubmatch(head); m != nil {
		marker = string(m[1])
	} else if m := xmlVersionRe.FindSubmatch(head); m != nil {
		marker = string(m[1])
	}
	if marker == "" {
		return fmt.Errorf("%w: missing OFXHEADER marker", ErrUnsupportedVersion)
	}
	if !strings.HasPrefix(marker, "1") && !strings.HasPrefix(marker, "2") {
		return fmt.Errorf("%w: OFXHEADER %s", ErrUnsupportedVersion, marker)
	}
	return nil
}
