package statement

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultDescription = "Sem descrição"

var (
	ofxBlockRe  = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	ofxHeaderRe = regexp.MustCompile(`(?i)(OFXHEADER|<OFX>)`)
)

// OFXParser reads SGML and XML flavoured OFX. Tag values run until the next tag
// or end of line, so both "<TRNAMT>-10.00" and "<TRNAMT>-10.00</TRNAMT>" work.
type OFXParser struct{}

func (p *OFXParser) Format() string { return "ofx" }

func (p *OFXParser) Parse(r io.Reader, now time.Time) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("reading ofx: %w", err)
	}
	doc := string(raw)

	blocks := ofxBlockRe.FindAllStringSubmatch(doc, -1)
	if len(blocks) == 0 && !ofxHeaderRe.MatchString(doc) {
		return Result{}, ErrUnrecognizedFormat
	}

	var res Result
	for _, b := range blocks {
		rec, ok := parseOFXBlock(b[1], now)
		if !ok {
			res.SkippedMalformed++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func parseOFXBlock(block string, now time.Time) (Record, bool) {
	fitid := ofxTag(block, "FITID")
	rawAmount := ofxTag(block, "TRNAMT")
	if fitid == "" || rawAmount == "" {
		return Record{}, false
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return Record{}, false
	}

	date, fallback := ParseOFXDate(ofxTag(block, "DTPOSTED"), now)

	desc := ofxTag(block, "MEMO")
	if desc == "" {
		desc = ofxTag(block, "NAME")
	}
	if desc == "" {
		desc = DefaultDescription
	}

	return Record{
		FITID:        fitid,
		Type:         strings.ToUpper(ofxTag(block, "TRNTYPE")),
		Date:         date,
		Amount:       amount,
		Description:  desc,
		DateFallback: fallback,
	}, true
}

var ofxTagRe = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp)
	for _, tag := range []string{"TRNTYPE", "DTPOSTED", "TRNAMT", "FITID", "MEMO", "NAME"} {
		m[tag] = regexp.MustCompile(`(?i)<` + tag + `>([^<\r\n]*)`)
	}
	return m
}()

func ofxTag(block, tag string) string {
	m := ofxTagRe[tag].FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseOFXDate decodes the YYYYMMDD prefix of an OFX date at noon local time,
// ignoring any time or timezone suffix. The second result reports whether the
// token was unusable and now's calendar date was returned instead.
func ParseOFXDate(token string, now time.Time) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if len(token) >= 8 {
		if d, err := time.ParseInLocation("20060102", token[:8], now.Location()); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, now.Location()), false
		}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location()), true
}

// ParseAmount accepts "1234.56", "1234,56" and "1.234,56".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if strings.Contains(s, ",") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return decimal.NewFromString(s)
}
