package packages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/outbound-go/internal/prefs"
	"github.com/vaultsandbox/outbound-go/internal/render"
)

var (
	keyA = prefs.PublicKey{ID: "a", Data: []byte("a")}
	keyB = prefs.PublicKey{ID: "b", Data: []byte("b")}
)

func selection(t *testing.T, doc render.Document, atts []render.Attachment, p prefs.Preferences) render.Selection {
	t.Helper()
	sel, err := render.Select(doc, atts, p.MIMETypes())
	require.NoError(t, err)
	return sel
}

func buildAndAttach(t *testing.T, doc render.Document, atts []render.Attachment, p prefs.Preferences) *Set {
	t.Helper()
	sel := selection(t, doc, atts, p)
	set, err := Build(p, sel)
	require.NoError(t, err)
	require.NoError(t, Attach(set, p, sel, "hint"))
	return set
}

func TestBuild_SharesPackageAcrossSchemes(t *testing.T) {
	p := prefs.Preferences{
		"clear@x":    {Scheme: prefs.SchemeCleartext, MIMEType: prefs.MIMEPlain},
		"internal@x": {Scheme: prefs.SchemeInternal, MIMEType: prefs.MIMEPlain, Sign: true, PublicKeys: []prefs.PublicKey{keyA}},
		"inline@x":   {Scheme: prefs.SchemeExternalPGP, MIMEType: prefs.MIMEPlain, PGPScheme: prefs.PGPInline, PublicKeys: []prefs.PublicKey{keyB}},
	}

	set := buildAndAttach(t, render.Document{MIMEType: prefs.MIMEPlain, Body: "test"}, nil, p)
	require.Equal(t, 1, set.Len())

	top, ok := set.Get(Key{MIMEType: prefs.MIMEPlain})
	require.True(t, ok)
	assert.Len(t, top.Addresses, 3)
	assert.True(t, top.Sign())
	assert.True(t, top.HasCleartext())
	assert.Equal(t, TypeCleartext|TypeInternal|TypePGPInline, top.Type())

	assert.Nil(t, top.Addresses["clear@x"].BodyKeyPacket)
	assert.False(t, top.Addresses["clear@x"].NeedsWrap())
	assert.Equal(t, keyA, top.Addresses["internal@x"].PublicKey)
	assert.Equal(t, keyB, top.Addresses["inline@x"].PublicKey)
}

func TestBuild_PasswordForcesOwnPackage(t *testing.T) {
	p := prefs.Preferences{
		"internal@x": {Scheme: prefs.SchemeInternal, MIMEType: prefs.MIMEHTML, PublicKeys: []prefs.PublicKey{keyA}},
		"pw1@x":      {Scheme: prefs.SchemePassword, MIMEType: prefs.MIMEHTML},
		"pw2@x":      {Scheme: prefs.SchemePassword, MIMEType: prefs.MIMEHTML},
	}

	set := buildAndAttach(t, render.Document{MIMEType: prefs.MIMEHTML, Body: "<p>x</p>"}, nil, p)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, []Key{
		{MIMEType: prefs.MIMEHTML, Context: ContextDefault},
		{MIMEType: prefs.MIMEHTML, Context: ContextPassword},
	}, set.Keys())

	pw, _ := set.Get(Key{MIMEType: prefs.MIMEHTML, Context: ContextPassword})
	assert.Equal(t, []string{"pw1@x", "pw2@x"}, pw.SortedAddresses())
	assert.Equal(t, "hint", pw.Addresses["pw1@x"].PasswordHint)
	assert.Equal(t, TypePassword, pw.Type())
	assert.False(t, pw.Sign())
}

func TestBuild_PackageCountMatchesDistinctKeys(t *testing.T) {
	p := prefs.Preferences{}
	for _, addr := range []string{"a@x", "b@x", "c@x", "d@x", "e@x", "f@x"} {
		p[addr] = prefs.SendPreference{Scheme: prefs.SchemeCleartext, MIMEType: prefs.MIMEHTML}
	}
	p["plain@x"] = prefs.SendPreference{Scheme: prefs.SchemeInternal, MIMEType: prefs.MIMEPlain, PublicKeys: []prefs.PublicKey{keyA}}
	p["mime@x"] = prefs.SendPreference{Scheme: prefs.SchemeExternalPGP, MIMEType: prefs.MIMEMixed, PublicKeys: []prefs.PublicKey{keyB}}

	set := buildAndAttach(t, render.Document{MIMEType: prefs.MIMEHTML, Body: "<p>x</p>"}, nil, p)
	assert.Equal(t, 3, set.Len())
}

func TestBuild_HTMLWithAttachmentsSharesMixedPackage(t *testing.T) {
	atts := []render.Attachment{{ID: "att", Name: "a.txt", Data: []byte("a")}}
	p := prefs.Preferences{
		"html@x": {Scheme: prefs.SchemeInternal, MIMEType: prefs.MIMEHTML, PublicKeys: []prefs.PublicKey{keyA}},
		"mime@x": {Scheme: prefs.SchemeExternalPGP, MIMEType: prefs.MIMEMixed, PublicKeys: []prefs.PublicKey{keyB}},
		"down@x": {Scheme: prefs.SchemeInternal, MIMEType: prefs.MIMEPlain, PublicKeys: []prefs.PublicKey{keyB}},
	}

	set := buildAndAttach(t, render.Document{MIMEType: prefs.MIMEHTML, Body: "<p>x</p>"}, atts, p)
	require.Equal(t, 2, set.Len())

	mixed, ok := set.Get(Key{MIMEType: prefs.MIMEMixed})
	require.True(t, ok)
	assert.Len(t, mixed.Addresses, 2)
	assert.Nil(t, mixed.Addresses["html@x"].AttachmentKeyPackets)

	plain, ok := set.Get(Key{MIMEType: prefs.MIMEPlain})
	require.True(t, ok)
	assert.NotNil(t, plain.Addresses["down@x"].AttachmentKeyPackets)
}

func TestBuild_RejectsFailures(t *testing.T) {
	p := prefs.Preferences{
		"ok@x":  {Scheme: prefs.SchemeCleartext, MIMEType: prefs.MIMEPlain},
		"bad@x": {MIMEType: prefs.MIMEPlain, Failure: &prefs.Failure{Type: prefs.FailureLookup, Err: errors.New("down")}},
	}
	sel := selection(t, render.Document{MIMEType: prefs.MIMEPlain, Body: "x"}, nil, p)

	_, err := Build(p, sel)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "bad@x")
}

func TestBuild_MissingRepresentation(t *testing.T) {
	p := prefs.Preferences{"a@x": {Scheme: prefs.SchemeCleartext, MIMEType: prefs.MIMEHTML}}
	_, err := Build(p, render.Selection{})
	assert.ErrorIs(t, err, ErrMissingRepresentation)
}

func TestAttach_OrderIndependent(t *testing.T) {
	p := prefs.Preferences{
		"c@x": {Scheme: prefs.SchemeCleartext, MIMEType: prefs.MIMEPlain},
		"a@x": {Scheme: prefs.SchemeInternal, MIMEType: prefs.MIMEPlain, PublicKeys: []prefs.PublicKey{keyA}},
		"b@x": {Scheme: prefs.SchemePassword, MIMEType: prefs.MIMEPlain},
	}
	doc := render.Document{MIMEType: prefs.MIMEPlain, Body: "x"}

	first := buildAndAttach(t, doc, nil, p)
	for i := 0; i < 10; i++ {
		again := buildAndAttach(t, doc, nil, p)
		assert.Equal(t, first.Keys(), again.Keys())
		for _, k := range first.Keys() {
			a, _ := first.Get(k)
			b, _ := again.Get(k)
			assert.Equal(t, a.Addresses, b.Addresses)
		}
	}
}

func TestSet_Remove(t *testing.T) {
	p := prefs.Preferences{
		"a@x": {Scheme: prefs.SchemeInternal, MIMEType: prefs.MIMEPlain, PublicKeys: []prefs.PublicKey{keyA}},
		"b@x": {Scheme: prefs.SchemePassword, MIMEType: prefs.MIMEPlain},
	}
	set := buildAndAttach(t, render.Document{MIMEType: prefs.MIMEPlain, Body: "x"}, nil, p)
	require.Equal(t, 2, set.Len())

	set.Remove("b@x")
	assert.Equal(t, 1, set.Len())
	_, ok := set.Lookup("b@x")
	assert.False(t, ok)

	top, ok := set.Lookup("a@x")
	require.True(t, ok)
	assert.Equal(t, ContextDefault, top.Key.Context)
}

func TestTypeFor(t *testing.T) {
	tests := []struct {
		pref prefs.SendPreference
		mime prefs.MIMEType
		want Type
	}{
		{prefs.SendPreference{Scheme: prefs.SchemeInternal}, prefs.MIMEHTML, TypeInternal},
		{prefs.SendPreference{Scheme: prefs.SchemePassword}, prefs.MIMEHTML, TypePassword},
		{prefs.SendPreference{Scheme: prefs.SchemeExternalPGP}, prefs.MIMEMixed, TypePGPMIME},
		{prefs.SendPreference{Scheme: prefs.SchemeExternalPGP, PGPScheme: prefs.PGPInline}, prefs.MIMEPlain, TypePGPInline},
		{prefs.SendPreference{Scheme: prefs.SchemeCleartext}, prefs.MIMEHTML, TypeCleartext},
		{prefs.SendPreference{Scheme: prefs.SchemeCleartext, Sign: true}, prefs.MIMEMixed, TypeCleartextMIME},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeFor(tt.pref, tt.mime), "%s %s", tt.pref.Scheme, tt.mime)
	}
}
