package statement_test

import (
	"strings"
	"time"

	"github.com/frahmantamala/expense-reimbursement/internal/statement"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

const sgmlStatement = `OFXHEADER:100
DATA:OFXSGML
<OFX>
<BANKMSGSRSV1><STMTTRNRS><STMTRS>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250305120000[-3:BRT]
<TRNAMT>100,00
<FITID>A1
<MEMO>Deposit
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250306
<TRNAMT>-30.00
<FITID>A2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250307
<FITID>A3
<MEMO>no amount
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<TRNAMT>-5.00
<MEMO>no fitid
</STMTTRN>
</BANKTRANLIST>
</STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>`

var _ = Describe("OFXParser", func() {
	var (
		parser *statement.OFXParser
		now    time.Time
	)

	BeforeEach(func() {
		parser = &statement.OFXParser{}
		now = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	})

	It("extracts well-formed blocks and skips partial ones", func() {
		res, err := parser.Parse(strings.NewReader(sgmlStatement), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Records).To(HaveLen(2))
		Expect(res.SkippedMalformed).To(Equal(2))

		first := res.Records[0]
		Expect(first.FITID).To(Equal("A1"))
		Expect(first.Type).To(Equal("CREDIT"))
		Expect(first.Amount.Equal(decimal.NewFromInt(100))).To(BeTrue())
		Expect(first.Date).To(Equal(time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)))
		Expect(first.Description).To(Equal("Deposit"))
		Expect(first.DateFallback).To(BeFalse())

		second := res.Records[1]
		Expect(second.Amount.Equal(decimal.RequireFromString("-30"))).To(BeTrue())
		Expect(second.Description).To(Equal(statement.DefaultDescription))
	})

	It("reads XML flavoured tags", func() {
		doc := `<OFX><STMTTRN><TRNTYPE>DEBIT</TRNTYPE><DTPOSTED>20250101</DTPOSTED><TRNAMT>-12.34</TRNAMT><FITID>X9</FITID><MEMO>Taxi</MEMO></STMTTRN></OFX>`
		res, err := parser.Parse(strings.NewReader(doc), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Records).To(HaveLen(1))
		Expect(res.Records[0].FITID).To(Equal("X9"))
		Expect(res.Records[0].Amount.String()).To(Equal("-12.34"))
		Expect(res.Records[0].Description).To(Equal("Taxi"))
	})

	It("falls back to the parse date and flags it when the posted date is unusable", func() {
		doc := `<OFX><STMTTRN><TRNAMT>1<FITID>F1<DTPOSTED>2025</STMTTRN><STMTTRN><TRNAMT>2<FITID>F2</STMTTRN></OFX>`
		res, err := parser.Parse(strings.NewReader(doc), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Records).To(HaveLen(2))
		Expect(res.DateFallbacks()).To(Equal(2))
		Expect(res.Records[0].Date).To(Equal(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)))
	})

	It("rejects input that is not OFX at all", func() {
		_, err := parser.Parse(strings.NewReader("date,amount\n2025-01-01,10"), now)
		Expect(err).To(MatchError(statement.ErrUnrecognizedFormat))
	})

	It("returns no records for an OFX document without transactions", func() {
		res, err := parser.Parse(strings.NewReader("<OFX></OFX>"), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Records).To(BeEmpty())
	})
})

var _ = Describe("ParseAmount", func() {
	DescribeTable("normalizes decimal separators",
		func(in, want string) {
			got, err := statement.ParseAmount(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Equal(decimal.RequireFromString(want))).To(BeTrue())
		},
		Entry("period", "1234.56", "1234.56"),
		Entry("comma", "-10,50", "-10.50"),
		Entry("dotted thousands", "1.234,56", "1234.56"),
		Entry("comma thousands", "1,234.56", "1234.56"),
	)

	It("fails on garbage", func() {
		_, err := statement.ParseAmount("abc")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Registry", func() {
	It("looks parsers up case-insensitively", func() {
		reg := statement.DefaultRegistry()
		Expect(reg.Get("OFX")).NotTo(BeNil())
		Expect(reg.Get("csv")).To(BeNil())
	})

	It("panics on duplicate registration", func() {
		reg := statement.DefaultRegistry()
		Expect(func() { reg.Register(&statement.OFXParser{}) }).To(Panic())
	})
})
