package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Café Music", "cafe music"},
		{"  Jazz  ", "jazz"},
		{"Crème Brûlée", "creme brulee"},
		{"Straße", "strasse"},
		{"Ærøskøbing", "aeroskobing"},
		{"Łódź", "lodz"},
		{"ﬁnance", "finance"},
		{"Ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
		{"東京 Tokyo", "tokyo"},
		{"rock’n’roll", "rock'n'roll"},
		{"100 €", "100 eur"},
		{"", ""},
		{"   ", ""},
		{"日本", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Café Music",
		"  MIXED case  ",
		"Ørsted Æble",
		"naïve façade",
		"東京 Tokyo ",
		"tab\tseparated",
		" 日本 ",
		"Ǆemal",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_OnlyASCII(t *testing.T) {
	out := Normalize("Ünïcödé ∑ ✓ Ωmega")
	for i := 0; i < len(out); i++ {
		assert.Less(t, out[i], byte(0x80), "byte %d of %q", i, out)
	}
}
