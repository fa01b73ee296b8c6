package provider

import "testing"

func TestResolveKnownModelsWithCredentials(t *testing.T) {
	registry := NewRegistry(Config{OpenAIKey: "sk-test"}, nil)

	tests := []struct {
		requested string
		concrete  string
		available bool
	}{
		{"gpt-4", "gpt-4", true},
		{"gpt-3.5-turbo", "gpt-3.5-turbo", true},
		// No native Anthropic integration: disclosed fallback.
		{"claude-3", "gpt-4", false},
		// No Gemini client configured: disclosed fallback.
		{"gemini-pro", "gpt-4", false},
	}

	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			binding := registry.Resolve(tt.requested)
			if binding.Requested != tt.requested {
				t.Errorf("Requested = %q, want %q", binding.Requested, tt.requested)
			}
			if binding.ConcreteModel != tt.concrete {
				t.Errorf("ConcreteModel = %q, want %q", binding.ConcreteModel, tt.concrete)
			}
			if binding.Available != tt.available {
				t.Errorf("Available = %v, want %v", binding.Available, tt.available)
			}
			if binding.Provider == nil {
				t.Error("binding has no provider")
			}
		})
	}
}

func TestResolveUnknownModelDegradesToDefault(t *testing.T) {
	registry := NewRegistry(Config{OpenAIKey: "sk-test"}, nil)

	binding := registry.Resolve("llama-70b")
	if binding.ConcreteModel != string(DefaultModel) {
		t.Errorf("ConcreteModel = %q, want %q", binding.ConcreteModel, DefaultModel)
	}
	if binding.Available {
		t.Error("unknown model resolved as available")
	}
	if binding.Provider == nil {
		t.Error("unknown model resolved without a provider")
	}
}

func TestResolveWithoutAnyCredentialsStillBinds(t *testing.T) {
	// Resolution never fails: missing configuration degrades to an
	// unavailable binding, and the credential problem surfaces only
	// when the stream is opened.
	registry := NewRegistry(Config{}, nil)

	binding := registry.Resolve("gpt-4")
	if binding.Provider == nil {
		t.Fatal("binding has no provider")
	}
	if binding.Available {
		t.Error("gpt-4 resolved as available without an OpenAI key")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	registry := NewRegistry(Config{OpenAIKey: "sk-test"}, nil)

	for _, requested := range []string{"gpt-4", "claude-3", "gemini-pro", "nonsense"} {
		first := registry.Resolve(requested)
		second := registry.Resolve(requested)
		if first != second {
			t.Errorf("Resolve(%q) not idempotent: %+v vs %+v", requested, first, second)
		}
	}
}
