package auth

import "testing"

func TestStaticGate(t *testing.T) {
	g := NewStaticGate("hunter2")

	if !g.Allow("hunter2") {
		t.Fatal("correct password rejected")
	}
	for _, attempt := range []string{"", "hunter", "hunter22", "HUNTER2"} {
		if g.Allow(attempt) {
			t.Fatalf("wrong password %q accepted", attempt)
		}
	}
}

func TestOpenGate(t *testing.T) {
	g := OpenGate{}
	if !g.Allow("") || !g.Allow("anything") {
		t.Fatal("open gate rejected a request")
	}
}

func TestFromSecret(t *testing.T) {
	if _, ok := FromSecret("").(OpenGate); !ok {
		t.Fatal("empty secret should disable the gate")
	}
	g := FromSecret("s")
	if g.Allow("wrong") {
		t.Fatal("configured gate accepted wrong password")
	}
	if !g.Allow("s") {
		t.Fatal("configured gate rejected correct password")
	}
}
