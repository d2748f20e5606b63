package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Engine turns one chart image into one Result with exactly one remote call.
type Engine interface {
	Name() string
	GetModel() string
	Analyze(ctx context.Context, img Image) (Result, error)
}

// ModelSwitcher is implemented by engines that can run another model of the
// same provider. WithModel returns a copy; the receiver is left untouched.
type ModelSwitcher interface {
	WithModel(model string) Engine
}

// Credential yields the API key at call time.
type Credential func() (string, error)

// EnvCredential reads the first non-empty variable of keys on every call, so a
// key set after startup is picked up and a removed key fails the next call.
func EnvCredential(keys ...string) Credential {
	return func() (string, error) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v, nil
			}
		}
		name := "API_KEY"
		if len(keys) > 0 {
			name = keys[0]
		}
		return "", &ConfigurationError{Key: name}
	}
}

// StaticCredential always returns key; an empty key is a ConfigurationError
// reported under name.
func StaticCredential(name, key string) Credential {
	return func() (string, error) {
		if strings.TrimSpace(key) == "" {
			return "", &ConfigurationError{Key: name}
		}
		return strings.TrimSpace(key), nil
	}
}

// ErrUnknownEngine is returned by GetEngine for a name it cannot serve.
var ErrUnknownEngine = errors.New("unknown llm_name")

type Engines struct {
	Gemini Engine
	OpenAI Engine
	Stub   Engine
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(llmName)) {
	case "gemini":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	case "stub":
		eng = e.Stub
	default:
		return nil, fmt.Errorf("%w %q; use gemini, gpt or stub", ErrUnknownEngine, llmName)
	}
	if eng == nil {
		return nil, fmt.Errorf("%w: engine %q is not configured", ErrUnknownEngine, llmName)
	}
	return eng, nil
}

// Names lists the configured engines.
func (e *Engines) Names() []string {
	var out []string
	if e.Gemini != nil {
		out = append(out, "gemini")
	}
	if e.OpenAI != nil {
		out = append(out, "gpt")
	}
	if e.Stub != nil {
		out = append(out, "stub")
	}
	return out
}

// Manager keeps a per-chat engine choice on top of a default engine.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

func (m *Manager) Default() Engine { return m.def }
