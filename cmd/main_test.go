package main

import "testing"

func TestNewAppRegistersCommands(t *testing.T) {
	app := newApp()
	if app.Action == nil {
		t.Fatal("expected serve to be the default action")
	}
	for _, name := range []string{"serve", "migrate"} {
		if app.Command(name) == nil {
			t.Fatalf("expected %q command to be registered", name)
		}
	}
	for _, flag := range []string{"config-path", "port", "store"} {
		found := false
		for _, f := range app.Flags {
			for _, n := range f.Names() {
				if n == flag {
					found = true
				}
			}
		}
		if !found {
			t.Fatalf("expected --%s flag", flag)
		}
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	err := newApp().Run([]string{"ledger-service", "--config-path", t.TempDir(), "migrate"})
	if err == nil {
		t.Fatal("expected migrate to refuse the memory store")
	}
}
