package schema

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/fixlens/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customXML = `<?xml version="1.0"?>
<fix>
  <fields>
    <field number="9999" name="CustomTag" type="STRING"/>
  </fields>
</fix>
`

const quickfixXML = `<?xml version="1.0"?>
<fix major="4" minor="4">
  <header>
    <field name="BeginString" required="Y"/>
  </header>
  <fields>
    <field number="35" name="MsgType" type="STRING">
      <value enum="D" description="ORDER_SINGLE"/>
      <value enum="8" description="EXECUTION_REPORT"/>
    </field>
    <field number="54" name="Side" type="CHAR">
      <value enum="1" description="BUY"/>
      <value enum="2"/>
    </field>
    <field number="55" name="Symbol" type="STRING"/>
  </fields>
</fix>
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQuickFIXCustomTag(t *testing.T) {
	testlog.Start(t)
	d, err := LoadQuickFIX(writeFile(t, "custom.xml", customXML))
	require.NoError(t, err)

	assert.Equal(t, "CustomTag", d.ResolveName("9999"))
	spec, ok := d.Lookup("9999")
	require.True(t, ok)
	assert.Equal(t, "STRING", spec.Type)
	assert.Empty(t, spec.Enums)
}

func TestLoadQuickFIXEnumsAndHeaderIgnored(t *testing.T) {
	testlog.Start(t)
	d, err := LoadQuickFIX(writeFile(t, "fix44.xml", quickfixXML))
	require.NoError(t, err)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"35", "54", "55"}, d.Tags())

	desc, ok := d.ResolveEnum("35", "D")
	assert.True(t, ok)
	assert.Equal(t, "ORDER_SINGLE", desc)

	desc, ok = d.ResolveEnum("54", "2")
	assert.True(t, ok)
	assert.Equal(t, "2", desc, "description falls back to the enum value")

	_, ok = d.ResolveEnum("55", "ABC")
	assert.False(t, ok)
}

func TestLoadQuickFIXLatin1Declared(t *testing.T) {
	testlog.Start(t)
	// "Soci\xe9t\xe9" is ISO-8859-1 for Société.
	xml := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<fix><fields><field number=\"207\" name=\"SecurityExchange\" type=\"EXCHANGE\">" +
		"<value enum=\"XPAR\" description=\"Soci\xe9t\xe9 Paris\"/>" +
		"</field></fields></fix>\n"

	dict, err := LoadQuickFIX(writeFile(t, "latin1.xml", xml))
	require.NoError(t, err)
	assert.Equal(t, "SecurityExchange", dict.ResolveName("207"))
	desc, ok := dict.ResolveEnum("207", "XPAR")
	require.True(t, ok)
	assert.Equal(t, "Soci\u00e9t\u00e9 Paris", desc)
}

func TestLoadQuickFIXMissingNumberRejectsFile(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "bad.xml", `<fix><fields>
  <field number="1" name="Account" type="STRING"/>
  <field name="NoNumber" type="STRING"/>
</fields></fix>`)

	d := New()
	d.Define(FieldSpec{Tag: "1", Name: "Before"})
	err := d.LoadQuickFIX(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSchema))
	assert.Equal(t, "Before", d.ResolveName("1"), "rejected load must not apply staged entries")
}

func TestLoadQuickFIXErrors(t *testing.T) {
	testlog.Start(t)

	_, err := LoadQuickFIX(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = LoadQuickFIX(writeFile(t, "broken.xml", "<fix><fields><field number=\"1\"></fields>"))
	assert.True(t, errors.Is(err, ErrMalformedSchema))

	_, err = LoadQuickFIX(writeFile(t, "empty.xml", ""))
	assert.True(t, errors.Is(err, ErrMalformedSchema))
}

func TestLoadDocumentShapes(t *testing.T) {
	testlog.Start(t)

	nested := writeFile(t, "nested.json", `{
  "version": "FIX.4.4",
  "fields": {
    "9999": {"name": "CustomTag", "type": "STRING"},
    "54": {"name": "Side", "enum": {"1": "Buy", "2": "Sell"}},
    "5001": {"label": "Desk"},
    "5002": {}
  }
}`)
	d, err := LoadDocument(nested)
	require.NoError(t, err)
	assert.Equal(t, "CustomTag", d.ResolveName("9999"))
	assert.Equal(t, "Desk", d.ResolveName("5001"))
	assert.Equal(t, "Tag5002", d.ResolveName("5002"))
	desc, ok := d.ResolveEnum("54", "2")
	assert.True(t, ok)
	assert.Equal(t, "Sell", desc)

	flat := writeFile(t, "flat.yaml", `
9999:
  name: CustomTag
  type: STRING
54:
  name: Side
  values:
    1: Buy
58: Text
`)
	d, err = LoadDocument(flat)
	require.NoError(t, err)
	assert.Equal(t, "CustomTag", d.ResolveName("9999"))
	assert.Equal(t, "Text", d.ResolveName("58"))
	desc, ok = d.ResolveEnum("54", "1")
	assert.True(t, ok)
	assert.Equal(t, "Buy", desc)
}

func TestLoadDocumentErrors(t *testing.T) {
	testlog.Start(t)

	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, ErrNotFound))

	cases := map[string]string{
		"list.json":   `["9999"]`,
		"fields.json": `{"fields": ["9999"]}`,
		"entry.json":  `{"9999": ["CustomTag"]}`,
		"enum.json":   `{"54": {"name": "Side", "enum": ["1", "2"]}}`,
		"syntax.json": `{"9999": `,
		"empty.yaml":  ``,
		"scalar.yaml": `just text`,
	}
	for name, content := range cases {
		_, err := LoadDocument(writeFile(t, name, content))
		assert.Truef(t, errors.Is(err, ErrMalformedSchema), "%s: got %v", name, err)
	}
}

func TestLoadByExtension(t *testing.T) {
	testlog.Start(t)

	d, err := Load(writeFile(t, "custom.XML", customXML))
	require.NoError(t, err)
	assert.Equal(t, "CustomTag", d.ResolveName("9999"))

	d, err = Load(writeFile(t, "custom.yml", "9999: CustomTag\n"))
	require.NoError(t, err)
	assert.Equal(t, "CustomTag", d.ResolveName("9999"))

	_, err = Load(writeFile(t, "custom.txt", "9999=CustomTag"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestLastLoadWins(t *testing.T) {
	testlog.Start(t)
	d := New()
	require.NoError(t, d.LoadDocument(writeFile(t, "a.json", `{"54": {"name": "Side", "enum": {"1": "Buy"}}}`)))
	require.NoError(t, d.LoadDocument(writeFile(t, "b.json", `{"54": {"name": "OrderSide"}}`)))

	assert.Equal(t, "OrderSide", d.ResolveName("54"))
	_, ok := d.ResolveEnum("54", "1")
	assert.False(t, ok, "later load replaces the spec, no merge of enums")
}

func TestNilAndUnknownLookups(t *testing.T) {
	testlog.Start(t)
	var d *Dictionary
	assert.Equal(t, "Tag35", d.ResolveName("35"))
	_, ok := d.ResolveEnum("35", "D")
	assert.False(t, ok)
	assert.Zero(t, d.Len())

	d = New()
	assert.Equal(t, "Tag007", d.ResolveName("007"), "tags are compared as raw strings")

	other := New()
	other.Define(FieldSpec{Tag: "7", Name: "BeginSeqNo"})
	d.Merge(other)
	assert.Equal(t, "BeginSeqNo", d.ResolveName("7"))
	assert.Equal(t, "Tag007", d.ResolveName("007"))
}
