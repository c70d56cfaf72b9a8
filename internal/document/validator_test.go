package document

import (
	"strings"
	"testing"
)

func TestValidateCPF(t *testing.T) {
	valid := []string{
		"52998224725",
		"529.982.247-25",
		"111.444.777-35",
	}
	for _, doc := range valid {
		if !Validate(KindCPF, doc) {
			t.Fatalf("expected %q to be a valid CPF", doc)
		}
	}
	invalid := []string{
		"",
		"5299822472",
		"529982247250",
		"52998224726",
		"52998224715",
		"abc",
	}
	for _, doc := range invalid {
		if Validate(KindCPF, doc) {
			t.Fatalf("expected %q to be rejected", doc)
		}
	}
}

func TestValidateCNPJ(t *testing.T) {
	valid := []string{
		"11222333000181",
		"11.222.333/0001-81",
		"11444777000161",
	}
	for _, doc := range valid {
		if !Validate(KindCNPJ, doc) {
			t.Fatalf("expected %q to be a valid CNPJ", doc)
		}
	}
	invalid := []string{
		"",
		"1122233300018",
		"11222333000182",
		"11222333000191",
	}
	for _, doc := range invalid {
		if Validate(KindCNPJ, doc) {
			t.Fatalf("expected %q to be rejected", doc)
		}
	}
}

func TestValidateRejectsRepeatedDigits(t *testing.T) {
	for d := byte('0'); d <= '9'; d++ {
		cpf := strings.Repeat(string(d), 11)
		if Validate(KindCPF, cpf) {
			t.Fatalf("repeated CPF %q must be rejected", cpf)
		}
		cnpj := strings.Repeat(string(d), 14)
		if Validate(KindCNPJ, cnpj) {
			t.Fatalf("repeated CNPJ %q must be rejected", cnpj)
		}
	}
}

func TestValidateSingleDigitFlip(t *testing.T) {
	base := "52998224725"
	for i := 0; i < len(base); i++ {
		flipped := []byte(base)
		flipped[i] = '0' + (flipped[i]-'0'+1)%10
		if Validate(KindCPF, string(flipped)) {
			t.Fatalf("flipping digit %d of %q must invalidate it", i, base)
		}
	}
}

func TestValidateUnknownKind(t *testing.T) {
	if Validate(Kind("rg"), "52998224725") {
		t.Fatal("unknown kind must not validate")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("11.222.333/0001-81"); got != "11222333000181" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
