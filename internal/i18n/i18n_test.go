package i18n

import "testing"

func TestT_DottedPathLookup(t *testing.T) {
	if got := T("pt", "orders.status.pending", nil); got != "Pendente" {
		t.Fatalf("expected Portuguese translation, got %q", got)
	}
	if got := T("es", "orders.status.completed", nil); got != "Completado" {
		t.Fatalf("expected Spanish translation, got %q", got)
	}
}

func TestT_EnglishFallback(t *testing.T) {
	// catalog.out_of_stock only exists in the English dictionary.
	if got := T("pt", "catalog.out_of_stock", nil); got != "Unavailable" {
		t.Fatalf("expected English fallback, got %q", got)
	}
}

func TestT_LiteralKeyFallback(t *testing.T) {
	key := "does.not.exist"
	if got := T("en", key, nil); got != key {
		t.Fatalf("expected literal key, got %q", got)
	}
	if got := T("zz", key, nil); got != key {
		t.Fatalf("expected literal key for unknown language, got %q", got)
	}
}

func TestT_Replacements(t *testing.T) {
	got := T("en", "licenses.cooldown", map[string]string{"days": "12"})
	if got != "HWID can be reset again in 12 days" {
		t.Fatalf("unexpected replacement result: %q", got)
	}
}
