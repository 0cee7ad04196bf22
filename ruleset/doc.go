// Package ruleset loads declarative conversion rule sets from YAML.
//
// A rule-set file declares named converters whose rules use the same
// shorthand forms the engine accepts in code: a bare scalar copies the
// same-named attribute, a sequence renames (with an optional third
// element naming a converter or giving a default), and a mapping spells
// out destination, source and options in full.
//
//	version: "1"
//	converters:
//	  person:
//	    options:
//	      include_nils: false
//	    rules:
//	      - name
//	      - [years, age]
//	      - dst: email
//	        src: contact.email
//	        options:
//	          default: ""
//
// Built definitions are registered under their declared names, so rules
// may reference sibling converters by name.
package ruleset
