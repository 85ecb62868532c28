package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVendorName(t *testing.T) {
	cases := map[string]string{
		"Acme  Traders Pvt. Ltd.":   "Acme Traders",
		"Acme Traders Pvt Ltd":      "Acme Traders",
		"Sharma & Sons LLP":         "Sharma & Sons",
		"Globex Inc.":               "Globex",
		"Initech Corp":              "Initech",
		"Tata Trading Company":      "Tata Trading",
		"Mehta Co.":                 "Mehta",
		"Bharat Foods, Pvt Ltd":     "Bharat Foods",
		"Costco":                    "Costco",
		"  Plain   Name  ":          "Plain Name",
		"Nested Co Pvt Ltd":         "Nested",
		"Reliance Retail Pvt.Ltd. ": "Reliance Retail",
		"Acme Co\u00a0":             "Acme",
		"Acme Pvt Ltd\u3000":        "Acme",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeVendorName(in), in)
	}
}

func TestNormalizeVendorName_Idempotent(t *testing.T) {
	for _, in := range []string{
		"Acme  Traders Pvt. Ltd.",
		"Foo Company Inc",
		"A  B  C",
		"",
		"Co",
		"Acme Co\u00a0",
		"Acme Pvt Ltd\u3000",
		"Acme\u00a0\u00a0Traders\u2009LLP\u00a0",
	} {
		once := NormalizeVendorName(in)
		assert.Equal(t, once, NormalizeVendorName(once), in)
	}
}
