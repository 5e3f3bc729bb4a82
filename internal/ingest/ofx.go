package ingest

import (
	"regexp"
	"strings"
	"time"
)

// OFX/QFX files are SGML-like: tags are not always closed, so blocks are
// extracted with regular expressions rather than an XML parser.
var (
	stmtTrnRegex = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	ofxDigits    = regexp.MustCompile(`[^0-9]`)
)

func extractTag(block, tag string) string {
	re := regexp.MustCompile(`(?i)<` + tag + `>([^<\r\n]+)`)
	if m := re.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// parseOFXDate handles bare YYYYMMDD as well as the timestamped variants
// (YYYYMMDDHHMMSS, YYYYMMDDHHMMSS.XXX[TZ]); only the date portion is kept.
func parseOFXDate(raw string) (time.Time, error) {
	digits := ofxDigits.ReplaceAllString(raw, "")
	if len(digits) < 8 {
		return time.Time{}, &time.ParseError{Layout: "20060102", Value: raw}
	}
	return time.ParseInLocation("20060102", digits[:8], time.UTC)
}

// OFXResult carries the normalized candidates plus the skipped-block count.
type OFXResult struct {
	Candidates []Candidate
	Skipped    int
}

// ParseOFX extracts <STMTTRN> blocks from OFX/QFX text. FITID, DTPOSTED
// and TRNAMT are required; blocks missing any of them are skipped and
// counted. The OFX amount sign is inverted at this boundary: OFX uses
// negative = money out, the ledger uses positive = money out.
func ParseOFX(text string) *OFXResult {
	result := &OFXResult{}

	for _, match := range stmtTrnRegex.FindAllStringSubmatch(text, -1) {
		block := match[1]

		fitID := extractTag(block, "FITID")
		dtPosted := extractTag(block, "DTPOSTED")
		trnAmt := extractTag(block, "TRNAMT")
		if fitID == "" || dtPosted == "" || trnAmt == "" {
			result.Skipped++
			continue
		}

		date, err := parseOFXDate(dtPosted)
		if err != nil {
			result.Skipped++
			continue
		}
		amount, err := parseAmount(trnAmt)
		if err != nil {
			result.Skipped++
			continue
		}

		name := extractTag(block, "NAME")
		memo := extractTag(block, "MEMO")
		if name == "" {
			name = memo
		}
		if name == "" {
			result.Skipped++
			continue
		}

		result.Candidates = append(result.Candidates, Candidate{
			Date:        date,
			Name:        name,
			Amount:      amount.Neg(),
			CheckNumber: extractTag(block, "CHECKNUM"),
			Memo:        memo,
			ExternalID:  fitID,
		})
	}
	return result
}
