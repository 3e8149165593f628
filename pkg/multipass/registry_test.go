package multipass

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry(nil)
	ct := &countingTemplate{providerType: "oauth2"}

	require.NoError(t, r.Register(ct.template()))

	got, err := r.Lookup("oauth2")
	require.NoError(t, err)
	assert.Equal(t, "oauth2", got.ProviderType)
}

func TestRegistry_Lookup_NotFound(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Lookup("saml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProviderType)
	assert.Contains(t, err.Error(), "saml")
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register((&countingTemplate{providerType: "oauth2"}).template()))

	err := r.Register((&countingTemplate{providerType: "oauth2"}).template())
	assert.ErrorIs(t, err, ErrDuplicateProviderType)
}

func TestRegistry_MustRegister_PanicsOnDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister((&countingTemplate{providerType: "oauth2"}).template())

	assert.Panics(t, func() {
		r.MustRegister((&countingTemplate{providerType: "oauth2"}).template())
	})
}

func TestRegistry_Replace(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRegistry(zap.New(core))

	first := &countingTemplate{providerType: "oauth2"}
	second := &countingTemplate{providerType: "oauth2"}
	require.NoError(t, r.Replace(first.template()))
	assert.Equal(t, 0, logs.Len(), "first registration is not a replacement")

	require.NoError(t, r.Replace(second.template()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "template replaced", logs.All()[0].Message)

	tpl, err := r.Lookup("oauth2")
	require.NoError(t, err)
	_, err = tpl.Constructor(context.Background(), Options{}, tpl.ResultHandler)
	require.NoError(t, err)
	assert.Equal(t, int32(0), first.constructs.Load())
	assert.Equal(t, int32(1), second.constructs.Load())
}

func TestRegistry_Register_Invalid(t *testing.T) {
	valid := (&countingTemplate{providerType: "oauth2"}).template()

	tests := []struct {
		name   string
		mutate func(*Template)
	}{
		{name: "empty type", mutate: func(t *Template) { t.ProviderType = " " }},
		{name: "separator in type", mutate: func(t *Template) { t.ProviderType = "oauth:2" }},
		{name: "no constructor", mutate: func(t *Template) { t.Constructor = nil }},
		{name: "no options builder", mutate: func(t *Template) { t.OptionsBuilder = nil }},
		{name: "no result handler", mutate: func(t *Template) { t.ResultHandler = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := valid
			tt.mutate(&tpl)
			err := NewRegistry(nil).Register(tpl)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestRegistry_ProviderTypes(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister((&countingTemplate{providerType: "oauth2"}).template())
	r.MustRegister((&countingTemplate{providerType: "jwt"}).template())

	assert.Equal(t, []string{"jwt", "oauth2"}, r.ProviderTypes())
}
