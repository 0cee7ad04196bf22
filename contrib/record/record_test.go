package record_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"graphconvert/contrib/record"
	"graphconvert/contrib/xmlconv"
	"graphconvert/convert"
)

func openStore(t *testing.T) *record.SQLStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE parents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_text TEXT
		);
		CREATE TABLE children (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			child_text TEXT,
			parent_id INTEGER REFERENCES parents(id)
		);
		CREATE TABLE documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT,
			body BLOB
		);
	`)
	require.NoError(t, err)

	return &record.SQLStore{DB: db}
}

func TestConvertCreatesRow(t *testing.T) {
	store := openStore(t)

	def := record.RowDefinition("parent", store, "parents",
		[]any{"parent_text", "text"},
	)

	out, err := def.Convert(map[string]any{"text": "hello"})
	require.NoError(t, err)

	row := out.(*record.Row)
	assert.Equal(t, int64(1), row.ID)

	var text string
	require.NoError(t, store.DB.QueryRow(
		"SELECT parent_text FROM parents WHERE id = ?", row.ID).Scan(&text))
	assert.Equal(t, "hello", text)
}

func TestConvertRelatesChildren(t *testing.T) {
	store := openStore(t)

	child := record.RowDefinition("child", store, "children",
		[]any{"child_text", "text"},
	)

	parent := record.RowDefinition("parent", store, "parents",
		[]any{"parent_text", "text"},
		[]any{"children", "kids", map[string]any{
			"converter":                child,
			"relation_fk":              "parent_id",
			"initialization_attribute": false,
		}},
	)

	out, err := parent.Convert(map[string]any{
		"text": "p",
		"kids": []any{
			map[string]any{"text": "c1"},
			map[string]any{"text": "c2"},
		},
	})
	require.NoError(t, err)

	row := out.(*record.Row)

	related, err := store.ListRelated("children", "parent_id", row.ID)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "c1", related[0].Fields["child_text"])
	assert.Equal(t, "c2", related[1].Fields["child_text"])
}

func TestConvertReadsRelatedRows(t *testing.T) {
	store := openStore(t)

	id, err := store.Create("parents", map[string]any{"parent_text": "p"})
	require.NoError(t, err)

	_, err = store.Create("children", map[string]any{"child_text": "c1", "parent_id": id})
	require.NoError(t, err)
	_, err = store.Create("children", map[string]any{"child_text": "c2", "parent_id": id})
	require.NoError(t, err)

	childOut := convert.MapDefinition("child_out", "child_text")
	childOut.Adapter = &record.Adapter{Store: store}

	def := &convert.Definition{
		Name:    "parent_out",
		To:      convert.Types(map[string]any{}),
		Adapter: &record.Adapter{Store: store},
		Rules: []convert.RawRule{
			[]any{"text", "parent_text"},
			[]any{"children", "self", map[string]any{
				"related_table": "children",
				"related_fk":    "parent_id",
				"converter":     childOut,
			}},
		},
	}

	source := &record.Row{Table: "parents", ID: id, Fields: map[string]any{"parent_text": "p"}}

	out, err := def.Convert(source)
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, "p", m["text"])
	assert.Equal(t, []any{
		map[string]any{"child_text": "c1"},
		map[string]any{"child_text": "c2"},
	}, m["children"])
}

func TestContentField(t *testing.T) {
	store := openStore(t)

	def := record.RowDefinition("doc", store, "documents",
		[]any{"title", "title"},
		[]any{"body", "body", map[string]any{"content_field": true}},
	)

	out, err := def.Convert(map[string]any{"title": "t", "body": "file contents"})
	require.NoError(t, err)

	row := out.(*record.Row)
	assert.Equal(t, []byte("file contents"), row.Fields["body"])

	var body []byte
	require.NoError(t, store.DB.QueryRow(
		"SELECT body FROM documents WHERE id = ?", row.ID).Scan(&body))
	assert.Equal(t, []byte("file contents"), body)
}

func TestContentFieldRejectsOtherTypes(t *testing.T) {
	store := openStore(t)

	def := record.RowDefinition("doc", store, "documents",
		[]any{"body", "body", map[string]any{"content_field": true}},
	)

	_, err := def.Convert(map[string]any{"body": 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts string or []byte")
}

func TestSkipSave(t *testing.T) {
	def := &convert.Definition{
		Name:    "doc",
		To:      convert.Types(&record.Row{}),
		Adapter: &record.Adapter{Table: "documents", SkipSave: true},
		Options: convert.ConverterOptions{PassAttrsToInit: true},
		Rules:   []convert.RawRule{[]any{"title", "title"}},
	}

	out, err := def.Convert(map[string]any{"title": "t"})
	require.NoError(t, err)

	row := out.(*record.Row)
	assert.Equal(t, int64(0), row.ID)
	assert.Equal(t, "t", row.Fields["title"])
}

func TestAutoRowDefinitionCopiesSameNamedFields(t *testing.T) {
	store := openStore(t)

	def, err := record.AutoRowDefinition("doc", store, "documents")
	require.NoError(t, err)

	out, err := def.Convert(map[string]any{
		"title": "t",
		"body":  "b",
		"id":    int64(99),
	})
	require.NoError(t, err)

	row := out.(*record.Row)
	assert.Equal(t, int64(1), row.ID)
	assert.Equal(t, "t", row.Fields["title"])
	assert.Equal(t, "b", row.Fields["body"])

	_, hasID := row.Fields["id"]
	assert.False(t, hasID)
}

func TestAutoRowDefinitionKeepsExplicitRules(t *testing.T) {
	store := openStore(t)

	def, err := record.AutoRowDefinition("doc", store, "documents",
		[]any{"title", "headline"},
	)
	require.NoError(t, err)

	out, err := def.Convert(map[string]any{
		"headline": "from explicit rule",
		"title":    "shadowed",
		"body":     "b",
	})
	require.NoError(t, err)

	row := out.(*record.Row)
	assert.Equal(t, "from explicit rule", row.Fields["title"])
	assert.Equal(t, "b", row.Fields["body"])
}

func TestAutoRowDefinitionSkipsMissingSourceFields(t *testing.T) {
	store := openStore(t)

	def, err := record.AutoRowDefinition("doc", store, "documents")
	require.NoError(t, err)

	out, err := def.Convert(map[string]any{"title": "t"})
	require.NoError(t, err)

	row := out.(*record.Row)
	assert.Equal(t, "t", row.Fields["title"])

	_, hasBody := row.Fields["body"]
	assert.False(t, hasBody)
}

type verbOnlyStore struct{}

func (verbOnlyStore) Create(string, map[string]any) (int64, error) { return 0, nil }

func (verbOnlyStore) Save(string, int64, map[string]any) error { return nil }

func (verbOnlyStore) ListRelated(string, string, int64) ([]*record.Row, error) { return nil, nil }

func (verbOnlyStore) SetRelation(string, int64, string, int64) error { return nil }

func TestAutoRowDefinitionRequiresFieldLister(t *testing.T) {
	_, err := record.AutoRowDefinition("doc", verbOnlyStore{}, "documents")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot list the fields")
}

func TestConvertXMLIntoRow(t *testing.T) {
	store := openStore(t)

	doc, err := xmlconv.Parse(`<document><title>Invoice</title><body>pay me</body></document>`)
	require.NoError(t, err)

	xml := &xmlconv.Adapter{RootKey: "document"}
	fromXML := convert.GetterFunc(func(source any, path string, opts *convert.Options) (any, error) {
		return xml.Get(source, path, convert.Omit, opts)
	})

	def := record.RowDefinition("doc", store, "documents",
		[]any{"title", "title", map[string]any{"getter": fromXML}},
		[]any{"body", "body", map[string]any{"getter": fromXML}},
	)

	out, err := def.Convert(doc)
	require.NoError(t, err)

	row := out.(*record.Row)
	assert.Equal(t, "Invoice", row.Fields["title"])

	var body string
	require.NoError(t, store.DB.QueryRow(
		"SELECT body FROM documents WHERE id = ?", row.ID).Scan(&body))
	assert.Equal(t, "pay me", body)
}

func TestUpdateModeSaves(t *testing.T) {
	store := openStore(t)

	id, err := store.Create("parents", map[string]any{"parent_text": "before"})
	require.NoError(t, err)

	def := record.RowDefinition("parent", store, "parents",
		[]any{"parent_text", "text"},
	)

	dest := &record.Row{Table: "parents", ID: id, Fields: map[string]any{"parent_text": "before"}}

	_, err = def.Convert(map[string]any{"text": "after"}, convert.WithDestination(dest))
	require.NoError(t, err)

	var text string
	require.NoError(t, store.DB.QueryRow(
		"SELECT parent_text FROM parents WHERE id = ?", id).Scan(&text))
	assert.Equal(t, "after", text)
}
