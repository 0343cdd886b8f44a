package normalize

import "testing"

func TestTextPlain(t *testing.T) {
	t.Parallel()

	got := Text("  plain   abstract text ")
	if got != "plain abstract text" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestTextStripsMarkup(t *testing.T) {
	t.Parallel()

	got := Text("<p>Gene <i>FOXP2</i> drives &quot;speech&quot; traits.</p>")
	want := `Gene FOXP2 drives "speech" traits.`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTextEmpty(t *testing.T) {
	t.Parallel()

	if got := Text("   "); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
