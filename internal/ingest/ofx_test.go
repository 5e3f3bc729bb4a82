package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
)

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML

<OFX>
<BANKMSGSRSV1><STMTTRNRS><STMTRS><BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240315120000.000[-5:EST]
<TRNAMT>-42.50
<FITID>202403150001
<NAME>GROCERY STORE
<MEMO>POS PURCHASE
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240316
<TRNAMT>1500.00
<FITID>202403160001
<NAME>DIRECT DEPOSIT
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240317
<TRNAMT>-25.00
<FITID>202403170001
<CHECKNUM>1042
<MEMO>CHECK PAID
</STMTTRN>
</BANKTRANLIST></STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>`

func TestParseOFX(t *testing.T) {
	t.Run("sign_inversion", func(t *testing.T) {
		result := ParseOFX(sampleOFX)
		if len(result.Candidates) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(result.Candidates))
		}

		// OFX negative (money out) becomes positive in the ledger.
		debit := result.Candidates[0]
		if !debit.Amount.Equal(decimal.RequireFromString("42.50")) {
			t.Errorf("expected amount 42.50, got %s", debit.Amount)
		}
		if debit.Name != "GROCERY STORE" {
			t.Errorf("expected name GROCERY STORE, got %q", debit.Name)
		}
		if debit.ExternalID != "202403150001" {
			t.Errorf("expected FITID 202403150001, got %q", debit.ExternalID)
		}
		if debit.Date.Format("2006-01-02") != "2024-03-15" {
			t.Errorf("expected date 2024-03-15, got %s", debit.Date.Format("2006-01-02"))
		}

		// OFX positive (money in) becomes negative.
		credit := result.Candidates[1]
		if !credit.Amount.Equal(decimal.RequireFromString("-1500.00")) {
			t.Errorf("expected amount -1500.00, got %s", credit.Amount)
		}
	})

	t.Run("name_falls_back_to_memo", func(t *testing.T) {
		result := ParseOFX(sampleOFX)
		check := result.Candidates[2]
		if check.Name != "CHECK PAID" {
			t.Errorf("expected memo fallback CHECK PAID, got %q", check.Name)
		}
		if check.CheckNumber != "1042" {
			t.Errorf("expected check number 1042, got %q", check.CheckNumber)
		}
	})

	t.Run("missing_required_tags_skipped", func(t *testing.T) {
		input := `<STMTTRN>
<DTPOSTED>20240301
<TRNAMT>-10.00
</STMTTRN>
<STMTTRN>
<FITID>X1
<TRNAMT>-10.00
</STMTTRN>`
		result := ParseOFX(input)
		if len(result.Candidates) != 0 {
			t.Errorf("expected 0 candidates, got %d", len(result.Candidates))
		}
		if result.Skipped != 2 {
			t.Errorf("expected 2 skipped, got %d", result.Skipped)
		}
	})

	t.Run("empty_input", func(t *testing.T) {
		result := ParseOFX("not ofx at all")
		if len(result.Candidates) != 0 || result.Skipped != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})
}

func TestParseOFXDate(t *testing.T) {
	cases := map[string]string{
		"20240315":                    "2024-03-15",
		"20240315120000":              "2024-03-15",
		"20240315120000.000[-5:EST]":  "2024-03-15",
	}
	for raw, want := range cases {
		got, err := parseOFXDate(raw)
		if err != nil {
			t.Errorf("parseOFXDate(%q) error: %v", raw, err)
			continue
		}
		if got.Format("2006-01-02") != want {
			t.Errorf("parseOFXDate(%q) = %s, want %s", raw, got.Format("2006-01-02"), want)
		}
	}

	if _, err := parseOFXDate("2024"); err == nil {
		t.Error("expected error for short date")
	}
}
