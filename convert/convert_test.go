package convert_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphconvert/convert"
)

func mustConvert(t *testing.T, d *convert.Definition, source any, opts ...convert.ConvertOption) map[string]any {
	t.Helper()

	out, err := d.Convert(source, opts...)
	require.NoError(t, err)
	require.IsType(t, map[string]any{}, out)

	return out.(map[string]any)
}

func TestConvertCopyAndRename(t *testing.T) {
	def := convert.MapDefinition("person",
		"name",
		[]any{"years", "age"},
	)

	out := mustConvert(t, def, map[string]any{"name": "Ada", "age": 36, "ignored": true})

	assert.Equal(t, map[string]any{"name": "Ada", "years": 36}, out)
}

func TestConvertMissingSourceAttrIsSkipped(t *testing.T) {
	def := convert.MapDefinition("person", "name", "nickname")

	out := mustConvert(t, def, map[string]any{"name": "Ada"})

	assert.Equal(t, map[string]any{"name": "Ada"}, out)
	_, present := out["nickname"]
	assert.False(t, present)
}

func TestConvertDefaults(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"missing", map[string]any{"default": "fell back"}},
		[]any{"nilled", map[string]any{"default": "fell back"}},
		[]any{"blank", map[string]any{"default": "fell back"}},
		[]any{"kept", map[string]any{"default": "fell back"}},
		[]any{"computed", convert.NotOnSource, func() any { return 7 }},
	)

	out := mustConvert(t, def, map[string]any{
		"nilled": nil,
		"blank":  "",
		"kept":   "value",
	})

	assert.Equal(t, "fell back", out["missing"])
	assert.Equal(t, "fell back", out["nilled"])
	assert.Equal(t, "fell back", out["blank"])
	assert.Equal(t, "value", out["kept"])
	assert.Equal(t, 7, out["computed"])
}

func TestConvertAbsentDefaultAppliesToPairForm(t *testing.T) {
	def := &convert.Definition{
		Name:          "doc",
		To:            convert.Types(map[string]any{}),
		AbsentDefault: "absent",
		Rules: []convert.RawRule{
			[]any{"filler", convert.NotOnSource},
		},
	}

	out := mustConvert(t, def, map[string]any{})
	assert.Equal(t, "absent", out["filler"])
}

func TestConvertRequiredBeatsDefault(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"id", map[string]any{"required": true, "default": "d"}},
	)

	_, err := def.Convert(map[string]any{})
	require.Error(t, err)

	var vr *convert.ValueRequiredError
	require.ErrorAs(t, err, &vr)
	assert.Equal(t, "id", vr.Path)
}

func TestConvertRequiredPredicate(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"n", map[string]any{"required": func(v any) bool { return v.(int) > 0 }}},
	)

	out := mustConvert(t, def, map[string]any{"n": 3})
	assert.Equal(t, 3, out["n"])

	_, err := def.Convert(map[string]any{"n": -1})
	var vr *convert.ValueRequiredError
	require.ErrorAs(t, err, &vr)
	assert.Contains(t, vr.Error(), "requirement condition")

	_, err = def.Convert(map[string]any{})
	require.ErrorAs(t, err, &vr)
}

func TestConvertFunctionConverters(t *testing.T) {
	titleCase := func(s string) string { return strings.ToUpper(s[:1]) + s[1:] }

	def := convert.MapDefinition("doc",
		[]any{"upper", "name", func(v any) any { return strings.ToUpper(v.(string)) }},
		[]any{"titled", "name", titleCase},
		[]any{"with_ctx", "name", func(v any, c *convert.Converter) any {
			return v.(string) + "/" + c.Context()["suffix"].(string)
		}},
	)

	out := mustConvert(t, def, map[string]any{"name": "ada"},
		convert.WithContext(map[string]any{"suffix": "ctx"}))

	assert.Equal(t, "ADA", out["upper"])
	assert.Equal(t, "Ada", out["titled"])
	assert.Equal(t, "ada/ctx", out["with_ctx"])
}

func TestConvertWholeSourceRule(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"summary", "self", func(v any) any {
			src := v.(map[string]any)
			return src["first"].(string) + " " + src["last"].(string)
		}},
	)

	out := mustConvert(t, def, map[string]any{"first": "Ada", "last": "Lovelace"})
	assert.Equal(t, "Ada Lovelace", out["summary"])
}

func TestConvertNamedConverters(t *testing.T) {
	convert.RegisterNamedConverter("test_upper", func(v any) any {
		return strings.ToUpper(v.(string))
	})
	t.Cleanup(func() { convert.UnregisterNamedConverter("test_upper") })

	def := &convert.Definition{
		Name: "doc",
		To:   convert.Types(map[string]any{}),
		Methods: map[string]any{
			"local_twice": func(v any) any { return v.(string) + v.(string) },
		},
		Rules: []convert.RawRule{
			[]any{"a", "name", "test_upper"},
			[]any{"b", "name", "local_twice"},
		},
	}

	out := mustConvert(t, def, map[string]any{"name": "ab"})
	assert.Equal(t, "AB", out["a"])
	assert.Equal(t, "abab", out["b"])
}

func TestConvertUnknownNamedConverter(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"a", "name", "no_such_converter"},
	)

	_, err := def.Convert(map[string]any{"name": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown named converter "no_such_converter"`)
}

func TestConvertUnsupportedConverterType(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"a", &convert.Options{Converter: 42}},
	)

	_, err := def.Convert(map[string]any{"a": "x"})

	var uc *convert.UnsupportedConverterTypeError
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, "a", uc.Dst)
}

func TestConvertMapsOverCollections(t *testing.T) {
	double := func(v any) any { return v.(int) * 2 }

	def := convert.MapDefinition("doc",
		[]any{"nums", double},
		[]any{"whole", "nums", &convert.Options{
			Converter: func(v any) any { return len(v.([]any)) },
			Map:       boolPtr(false),
		}},
	)

	out := mustConvert(t, def, map[string]any{"nums": []any{1, 2, 3}})

	assert.Equal(t, []any{2, 4, 6}, out["nums"])
	assert.Equal(t, 3, out["whole"])
}

func TestConvertNonCollectionIgnoresMapping(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"n", func(v any) any { return v.(int) + 1 }},
	)

	out := mustConvert(t, def, map[string]any{"n": 41})
	assert.Equal(t, 42, out["n"])
}

func TestConvertFilterAndSort(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"nums", map[string]any{
			"filter": func(v any) bool { return v.(int) < 10 },
			"sort":   true,
		}},
	)

	out := mustConvert(t, def, map[string]any{"nums": []any{9, 12, 7, 15, 5}})
	assert.Equal(t, []any{5, 7, 9}, out["nums"])
}

func TestConvertFilterDropsScalar(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"n", &convert.Options{
			Filter: func(v any) bool { return v.(int) > 0 },
			Map:    boolPtr(false),
		}},
	)

	out := mustConvert(t, def, map[string]any{"n": -5})
	_, present := out["n"]
	assert.False(t, present)

	out = mustConvert(t, def, map[string]any{"n": 5})
	assert.Equal(t, 5, out["n"])
}

func TestConvertFilterSeesSource(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"nums", map[string]any{
			"filter": func(v, source any) bool {
				return v.(int) != source.(map[string]any)["skip"].(int)
			},
		}},
	)

	out := mustConvert(t, def, map[string]any{"nums": []any{1, 2, 3}, "skip": 2})
	assert.Equal(t, []any{1, 3}, out["nums"])
}

func TestConvertSortKeyFunc(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"words", map[string]any{
			"sort": func(v any) any { return len(v.(string)) },
		}},
	)

	out := mustConvert(t, def, map[string]any{"words": []any{"ccc", "a", "bb"}})
	assert.Equal(t, []any{"a", "bb", "ccc"}, out["words"])
}

func TestConvertSortRejectsScalar(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"n", map[string]any{"sort": true, "map": false}},
	)

	_, err := def.Convert(map[string]any{"n": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only applicable to collections")
}

func TestConvertNilShortCircuit(t *testing.T) {
	called := false
	def := convert.MapDefinition("doc",
		[]any{"a", func(v any) any {
			called = true
			return v
		}},
		[]any{"b", "a", &convert.Options{
			Converter:          func(v any) any { return "saw nil" },
			ConverterWantsNils: true,
		}},
	)

	out := mustConvert(t, def, map[string]any{"a": nil})

	assert.False(t, called)
	assert.Nil(t, out["a"])
	assert.Equal(t, "saw nil", out["b"])
}

func TestMapConvertNilElements(t *testing.T) {
	double := func(v any) any {
		if v == nil {
			return "saw nil"
		}

		return v.(int) * 2
	}

	def := convert.MapDefinition("doc",
		[]any{"items", "items", map[string]any{"converter": double}},
	)

	out := mustConvert(t, def, map[string]any{"items": []any{1, nil, 3}})

	assert.Equal(t, []any{2, nil, 6}, out["items"])
}

func TestMapConvertNilElementsReachConverterWhenWanted(t *testing.T) {
	double := func(v any) any {
		if v == nil {
			return "saw nil"
		}

		return v.(int) * 2
	}

	def := convert.MapDefinition("doc",
		[]any{"items", "items", map[string]any{
			"converter":            double,
			"converter_wants_nils": true,
		}},
	)

	out := mustConvert(t, def, map[string]any{"items": []any{1, nil, 3}})

	assert.Equal(t, []any{2, "saw nil", 6}, out["items"])
}

func TestConvertNilAndEmptyPolicies(t *testing.T) {
	src := map[string]any{"a": nil, "b": ""}

	drop := &convert.Definition{
		Name:    "drop",
		To:      convert.Types(map[string]any{}),
		Options: convert.ConverterOptions{DropNils: true, DropEmptyStrings: true},
		Rules:   []convert.RawRule{"a", "b"},
	}

	out := mustConvert(t, drop, src)
	assert.Empty(t, out)

	blank := &convert.Definition{
		Name:    "blank",
		To:      convert.Types(map[string]any{}),
		Options: convert.ConverterOptions{ConvertNilsToBlanks: true},
		Rules:   []convert.RawRule{"a"},
	}

	out = mustConvert(t, blank, src)
	assert.Equal(t, "", out["a"])
}

func TestConvertPluralize(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"tags", map[string]any{"pluralize": true}},
	)

	out := mustConvert(t, def, map[string]any{"tags": "one"})
	assert.Equal(t, []any{"one"}, out["tags"])

	out = mustConvert(t, def, map[string]any{"tags": []any{"one", "two"}})
	assert.Equal(t, []any{"one", "two"}, out["tags"])
}

func TestConvertMaxLen(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"s", map[string]any{"max_len": 3}},
		[]any{"l", map[string]any{"max_len": 2, "map": false}},
	)

	out := mustConvert(t, def, map[string]any{
		"s": "überlang",
		"l": []any{1, 2, 3},
	})

	assert.Equal(t, "übe", out["s"])
	assert.Equal(t, []any{1, 2}, out["l"])
}

func TestConvertMaxLenRejectsNumbers(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"n", map[string]any{"max_len": 2}},
	)

	_, err := def.Convert(map[string]any{"n": 12345})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_len")
}

func TestConvertWashers(t *testing.T) {
	def := &convert.Definition{
		Name: "doc",
		To:   convert.Types(map[string]any{}),
		Washers: []convert.Washer{
			convert.StringWasher(strings.TrimSpace),
		},
		Rules: []convert.RawRule{
			"a",
			[]any{"b", "a", &convert.Options{SkipWash: true}},
		},
	}

	out := mustConvert(t, def, map[string]any{"a": "  padded  "})

	assert.Equal(t, "padded", out["a"])
	assert.Equal(t, "  padded  ", out["b"])
}

func TestConvertNestedDefinition(t *testing.T) {
	child := convert.MapDefinition("child", "name")

	def := convert.MapDefinition("parent",
		[]any{"owner", child},
		[]any{"members", "people", child},
	)

	out := mustConvert(t, def, map[string]any{
		"owner": map[string]any{"name": "Ada", "extra": 1},
		"people": []any{
			map[string]any{"name": "Alan"},
			map[string]any{"name": "Grace"},
		},
	})

	want := map[string]any{
		"owner": map[string]any{"name": "Ada"},
		"members": []any{
			map[string]any{"name": "Alan"},
			map[string]any{"name": "Grace"},
		},
	}
	assert.Empty(t, cmp.Diff(want, out))
}

func TestConvertMergeIntoExistingDestination(t *testing.T) {
	child := convert.MapDefinition("child", "c", "d")

	def := &convert.Definition{
		Name:    "parent",
		To:      convert.Types(map[string]any{}),
		Options: convert.ConverterOptions{CopyOnly: true},
		Rules: []convert.RawRule{
			[]any{"child", map[string]any{"converter": child, "merge": true}},
		},
	}

	dest := map[string]any{"child": map[string]any{"d": 0, "e": 7}}

	out := mustConvert(t, def,
		map[string]any{"child": map[string]any{"c": 3, "d": 4}},
		convert.WithDestination(dest))

	assert.Equal(t, map[string]any{"c": 3, "d": 4, "e": 7}, out["child"])
}

func TestConvertCopyOnlyRequiresDestination(t *testing.T) {
	def := &convert.Definition{
		Name:    "doc",
		To:      convert.Types(map[string]any{}),
		Options: convert.ConverterOptions{CopyOnly: true},
		Rules:   []convert.RawRule{"a"},
	}

	_, err := def.Convert(map[string]any{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy_only")
}

func TestConvertUpdateMode(t *testing.T) {
	def := convert.MapDefinition("doc", "a")

	dest := map[string]any{"a": 0, "keep": "me"}
	out := mustConvert(t, def, map[string]any{"a": 1}, convert.WithDestination(dest))

	assert.Equal(t, map[string]any{"a": 1, "keep": "me"}, out)
}

func TestConvertContextPrecedence(t *testing.T) {
	def := &convert.Definition{
		Name: "doc",
		To:   convert.Types(map[string]any{}),
		BuildContext: func(c *convert.Converter) map[string]any {
			return map[string]any{"k": "built", "only_built": "built"}
		},
		Rules: []convert.RawRule{"k", "only_built", "only_supplied"},
	}

	out := mustConvert(t, def, map[string]any{},
		convert.WithContext(map[string]any{"k": "supplied", "only_supplied": "supplied"}))

	assert.Equal(t, "supplied", out["k"])
	assert.Equal(t, "built", out["only_built"])
	assert.Equal(t, "supplied", out["only_supplied"])
}

func TestConvertSourceValueBeatsContext(t *testing.T) {
	def := convert.MapDefinition("doc", "k")

	out := mustConvert(t, def, map[string]any{"k": "from source"},
		convert.WithContext(map[string]any{"k": "from context"}))

	assert.Equal(t, "from source", out["k"])
}

func TestConvertNestedDefinitionInheritsContext(t *testing.T) {
	child := convert.MapDefinition("child", "tenant")

	def := &convert.Definition{
		Name: "parent",
		To:   convert.Types(map[string]any{}),
		BuildContext: func(c *convert.Converter) map[string]any {
			return map[string]any{"tenant": "acme"}
		},
		Rules: []convert.RawRule{
			[]any{"child", child},
		},
	}

	out := mustConvert(t, def, map[string]any{"child": map[string]any{}})
	assert.Equal(t, map[string]any{"tenant": "acme"}, out["child"])
}

func TestConvertContextRestoredAfterNested(t *testing.T) {
	inner := &convert.Definition{
		Name: "inner",
		To:   convert.Types(map[string]any{}),
		BuildContext: func(c *convert.Converter) map[string]any {
			return map[string]any{"depth": "inner"}
		},
		Rules: []convert.RawRule{"depth"},
	}

	var after map[string]any

	outer := &convert.Definition{
		Name: "outer",
		To:   convert.Types(map[string]any{}),
		BuildContext: func(c *convert.Converter) map[string]any {
			return map[string]any{"depth": "outer"}
		},
		Rules: []convert.RawRule{
			[]any{"child", "child", inner},
			[]any{"after", "self", func(v any, c *convert.Converter) any {
				after = c.Context()
				return "done"
			}},
		},
	}

	_, err := outer.Convert(map[string]any{"child": map[string]any{}}, convert.WithContext(nil))
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, "outer", after["depth"])
}

func TestConvertUnionSourceTypes(t *testing.T) {
	type A struct{ Name string }
	type B struct{ Name string }
	type C struct{ Name string }

	def := &convert.Definition{
		Name:  "doc",
		From:  convert.Types(A{}, B{}),
		To:    convert.Types(map[string]any{}),
		Rules: []convert.RawRule{[]any{"name", "Name"}},
	}

	out := mustConvert(t, def, A{Name: "a"})
	assert.Equal(t, "a", out["name"])

	out = mustConvert(t, def, &B{Name: "b"})
	assert.Equal(t, "b", out["name"])

	_, err := def.Convert(C{Name: "c"})

	var tm *convert.TypeMismatchError
	require.ErrorAs(t, err, &tm)
}

func TestConvertUnionDestinationRejected(t *testing.T) {
	def := &convert.Definition{
		Name:  "doc",
		To:    convert.Types(map[string]any{}, map[string]string{}),
		Rules: []convert.RawRule{"a"},
	}

	_, err := def.Convert(map[string]any{"a": 1})

	var bad *convert.InvalidDestinationTypeError
	require.ErrorAs(t, err, &bad)
}

func TestConvertExtraAttrs(t *testing.T) {
	def := convert.MapDefinition("doc", "a", "b")

	out := mustConvert(t, def, map[string]any{"a": 1, "b": 2},
		convert.WithExtraAttrs(map[string]any{"b": 20, "c": 30}))

	assert.Equal(t, map[string]any{"a": 1, "b": 20, "c": 30}, out)
}

func TestConvertExtraAttrsDoNotStick(t *testing.T) {
	def := convert.MapDefinition("doc", "a")

	mustConvert(t, def, map[string]any{"a": 1},
		convert.WithExtraAttrs(map[string]any{"a": 99}))

	out := mustConvert(t, def, map[string]any{"a": 1})
	assert.Equal(t, 1, out["a"])
}

func TestConvertStructDestination(t *testing.T) {
	type Person struct {
		Name string
		Age  int
	}

	def := &convert.Definition{
		Name: "person",
		To:   convert.Types(&Person{}),
		Rules: []convert.RawRule{
			[]any{"Name", "name"},
			[]any{"Age", "age"},
		},
	}

	out, err := def.Convert(map[string]any{"name": "Ada", "age": 36})
	require.NoError(t, err)

	p, ok := out.(*Person)
	require.True(t, ok)
	assert.Equal(t, &Person{Name: "Ada", Age: 36}, p)
}

func TestConvertStructSource(t *testing.T) {
	type Person struct {
		Name string
		Age  int
	}

	def := convert.MapDefinition("person",
		[]any{"name", "Name"},
		[]any{"age", "Age"},
	)

	out := mustConvert(t, def, Person{Name: "Ada", Age: 36})
	assert.Equal(t, map[string]any{"name": "Ada", "age": 36}, out)
}

func TestConvertDeepDestinationPath(t *testing.T) {
	def := &convert.Definition{
		Name:    "doc",
		To:      convert.Types(map[string]any{}),
		NewDest: func() any { return map[string]any{"inner": map[string]any{}} },
		Rules: []convert.RawRule{
			[]any{"inner.value", "v"},
		},
	}

	out := mustConvert(t, def, map[string]any{"v": 7})
	assert.Equal(t, map[string]any{"inner": map[string]any{"value": 7}}, out)
}

func TestConvertDeepPathMissingIntermediateIsSilent(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"inner.value", "v"},
	)

	out := mustConvert(t, def, map[string]any{"v": 7})
	assert.Empty(t, out)
}

func TestConvertReverseAttr(t *testing.T) {
	child := convert.MapDefinition("child", "name")

	def := convert.MapDefinition("parent",
		"title",
		[]any{"kid", map[string]any{
			"converter":         child,
			"reverse_attr_name": "owner",
		}},
	)

	out := mustConvert(t, def, map[string]any{
		"title": "p",
		"kid":   map[string]any{"name": "c"},
	})

	kid := out["kid"].(map[string]any)
	assert.Equal(t, "c", kid["name"])

	owner, ok := kid["owner"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("%p", out), fmt.Sprintf("%p", owner))
}

func TestConvertPassInstance(t *testing.T) {
	var got any

	def := convert.MapDefinition("doc",
		"a",
		[]any{"echo", &convert.Options{
			PassInstanceToConverter: true,
			Converter: func(v any) any {
				got = v
				return "ok"
			},
		}},
	)

	out := mustConvert(t, def, map[string]any{"a": 1})

	assert.Equal(t, "ok", out["echo"])
	require.NotNil(t, got)
	assert.Equal(t, fmt.Sprintf("%p", out), fmt.Sprintf("%p", got.(map[string]any)))
}

func TestConvertPostConvert(t *testing.T) {
	def := &convert.Definition{
		Name: "doc",
		To:   convert.Types(map[string]any{}),
		PostConvert: func(c *convert.Converter, inst any) (any, error) {
			inst.(map[string]any)["post"] = true
			return inst, nil
		},
		Rules: []convert.RawRule{"a"},
	}

	out := mustConvert(t, def, map[string]any{"a": 1})
	assert.Equal(t, map[string]any{"a": 1, "post": true}, out)
}

func TestConvertInstantiateHookSkips(t *testing.T) {
	def := &convert.Definition{
		Name: "doc",
		To:   convert.Types(map[string]any{}),
		Instantiate: func(c *convert.Converter, attrs *convert.Attrs) (any, error) {
			return convert.Omit, nil
		},
		Rules: []convert.RawRule{"a"},
	}

	out, err := def.Convert(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.True(t, convert.IsOmit(out))
}

func TestConvertCompoundConverter(t *testing.T) {
	def := convert.MapDefinition("doc",
		[]any{"s", "s", convert.CompoundConverter(
			func(v any) any { return strings.TrimSpace(v.(string)) },
			func(v any) any { return strings.ToUpper(v.(string)) },
		)},
	)

	out := mustConvert(t, def, map[string]any{"s": "  go  "})
	assert.Equal(t, "GO", out["s"])
}

func TestConvertNormalizedRules(t *testing.T) {
	def := convert.MapDefinition("doc", "a", []any{"b", "c"})

	rules, err := def.NormalizedRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].Dst)
	assert.Equal(t, "c", rules[1].Src)
}

func boolPtr(b bool) *bool { return &b }
