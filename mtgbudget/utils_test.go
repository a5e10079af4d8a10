package mtgbudget

import "testing"

type ParsePriceTest struct {
	In  string
	Out string
	Err bool
}

var ParsePriceTests = []ParsePriceTest{
	{In: "0,05 €", Out: "0.05"},
	{In: "12,50€", Out: "12.5"},
	{In: "$3.99", Out: "3.99"},
	{In: "1.234,56 €", Out: "1234.56"},
	{In: "1,234.56", Out: "1234.56"},
	{In: "1,234", Out: "1234"},
	{In: "2.000.000,00", Out: "2000000"},
	{In: " 7 ", Out: "7"},
	{In: "0", Out: "0"},
	{In: "", Err: true},
	{In: "€", Err: true},
	{In: "-1,00", Err: true},
	{In: "N/A", Err: true},
}

func TestParsePrice(t *testing.T) {
	for _, probe := range ParsePriceTests {
		test := probe
		t.Run(test.In, func(t *testing.T) {
			t.Parallel()
			out, err := ParsePrice(test.In)
			if test.Err {
				if err == nil {
					t.Errorf("FAIL: %q: expected error, got %s", test.In, out)
				}
				return
			}
			if err != nil {
				t.Errorf("FAIL: %q: unexpected error: %s", test.In, err.Error())
				return
			}
			if !out.Equal(price(test.Out)) {
				t.Errorf("FAIL: %q: expected %s, got %s", test.In, test.Out, out)
				return
			}
			t.Log("PASS:", test.In)
		})
	}
}

func TestParseNullPrice(t *testing.T) {
	if ParseNullPrice("n.d.").Valid {
		t.Errorf("FAIL: invalid price reported as valid")
	}
	out := ParseNullPrice("0,35 €")
	if !out.Valid || !out.Decimal.Equal(price("0.35")) {
		t.Errorf("FAIL: unexpected price %v", out)
	}
}
