package i18n

import "testing"

func TestLoad_English(t *testing.T) {
	tbl, err := Load("en")
	if err != nil {
		t.Fatalf("load en: %v", err)
	}
	if tbl["anamnesis.yes_word"] != "Yes" {
		t.Errorf("unexpected yes_word: %q", tbl["anamnesis.yes_word"])
	}
}

func TestLoad_Romanian(t *testing.T) {
	tbl, err := Load("ro")
	if err != nil {
		t.Fatalf("load ro: %v", err)
	}
	if tbl["anamnesis.yes_word"] != "Da" {
		t.Errorf("unexpected yes_word: %q", tbl["anamnesis.yes_word"])
	}
}

func TestLoad_UnknownFallsBackToEnglish(t *testing.T) {
	tbl, err := Load("de")
	if err != nil {
		t.Fatalf("load de: %v", err)
	}
	if tbl["anamnesis.yes_word"] != "Yes" {
		t.Errorf("expected english fallback, got %q", tbl["anamnesis.yes_word"])
	}
}

func TestLoad_EmptyDefaultsToEnglish(t *testing.T) {
	tbl, err := Load("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if tbl["anamnesis.no_word"] != "No" {
		t.Errorf("expected english table, got %q", tbl["anamnesis.no_word"])
	}
}

func TestTablesHaveSameKeys(t *testing.T) {
	en, err := Load("en")
	if err != nil {
		t.Fatalf("load en: %v", err)
	}
	ro, err := Load("ro")
	if err != nil {
		t.Fatalf("load ro: %v", err)
	}

	for k := range en {
		if _, ok := ro[k]; !ok {
			t.Errorf("key %s missing from ro table", k)
		}
	}
	for k := range ro {
		if _, ok := en[k]; !ok {
			t.Errorf("key %s missing from en table", k)
		}
	}
}

func TestSupported(t *testing.T) {
	if !Supported("en") || !Supported("ro") {
		t.Error("expected en and ro to be supported")
	}
	if Supported("de") {
		t.Error("did not expect de to be supported")
	}
}
