package docs

import "strings"

const csharpReference = "https://learn.microsoft.com/dotnet/csharp/language-reference/"

// languageKeywords maps C# keywords, as used in <see langword="..."/>, to
// their canonical reference pages. Keys are lowercase.
var languageKeywords = map[string]string{
	"null":      csharpReference + "keywords/null",
	"true":      csharpReference + "builtin-types/bool",
	"false":     csharpReference + "builtin-types/bool",
	"bool":      csharpReference + "builtin-types/bool",
	"void":      csharpReference + "builtin-types/void",
	"object":    csharpReference + "builtin-types/reference-types#the-object-type",
	"string":    csharpReference + "builtin-types/reference-types#the-string-type",
	"dynamic":   csharpReference + "builtin-types/reference-types#the-dynamic-type",
	"int":       csharpReference + "builtin-types/integral-numeric-types",
	"uint":      csharpReference + "builtin-types/integral-numeric-types",
	"long":      csharpReference + "builtin-types/integral-numeric-types",
	"ulong":     csharpReference + "builtin-types/integral-numeric-types",
	"short":     csharpReference + "builtin-types/integral-numeric-types",
	"ushort":    csharpReference + "builtin-types/integral-numeric-types",
	"byte":      csharpReference + "builtin-types/integral-numeric-types",
	"sbyte":     csharpReference + "builtin-types/integral-numeric-types",
	"float":     csharpReference + "builtin-types/floating-point-numeric-types",
	"double":    csharpReference + "builtin-types/floating-point-numeric-types",
	"decimal":   csharpReference + "builtin-types/floating-point-numeric-types",
	"char":      csharpReference + "builtin-types/char",
	"default":   csharpReference + "operators/default",
	"typeof":    csharpReference + "operators/type-testing-and-cast#typeof-operator",
	"nameof":    csharpReference + "operators/nameof",
	"is":        csharpReference + "operators/is",
	"as":        csharpReference + "operators/type-testing-and-cast#as-operator",
	"new":       csharpReference + "operators/new-operator",
	"this":      csharpReference + "keywords/this",
	"base":      csharpReference + "keywords/base",
	"static":    csharpReference + "keywords/static",
	"abstract":  csharpReference + "keywords/abstract",
	"sealed":    csharpReference + "keywords/sealed",
	"virtual":   csharpReference + "keywords/virtual",
	"override":  csharpReference + "keywords/override",
	"readonly":  csharpReference + "keywords/readonly",
	"const":     csharpReference + "keywords/const",
	"async":     csharpReference + "keywords/async",
	"await":     csharpReference + "operators/await",
	"ref":       csharpReference + "keywords/ref",
	"out":       csharpReference + "keywords/out-parameter-modifier",
	"in":        csharpReference + "keywords/in",
	"params":    csharpReference + "keywords/method-parameters#params-modifier",
	"yield":     csharpReference + "statements/yield",
	"using":     csharpReference + "statements/using",
	"lock":      csharpReference + "statements/lock",
	"throw":     csharpReference + "statements/exception-handling-statements#the-throw-statement",
	"class":     csharpReference + "keywords/class",
	"struct":    csharpReference + "builtin-types/struct",
	"record":    csharpReference + "builtin-types/record",
	"interface": csharpReference + "keywords/interface",
	"enum":      csharpReference + "builtin-types/enum",
	"delegate":  csharpReference + "builtin-types/reference-types#the-delegate-type",
	"event":     csharpReference + "keywords/event",
	"public":    csharpReference + "keywords/public",
	"private":   csharpReference + "keywords/private",
	"protected": csharpReference + "keywords/protected",
	"internal":  csharpReference + "keywords/internal",
	"unsafe":    csharpReference + "keywords/unsafe",
	"volatile":  csharpReference + "keywords/volatile",
	"checked":   csharpReference + "statements/checked-and-unchecked",
	"unchecked": csharpReference + "statements/checked-and-unchecked",
}

// keywordTable builds the lookup table, applying overrides on top of the
// built-in dictionary. An override with an empty URL removes the keyword.
func keywordTable(overrides map[string]string) map[string]string {
	table := make(map[string]string, len(languageKeywords)+len(overrides))
	for k, v := range languageKeywords {
		table[k] = v
	}
	for k, v := range overrides {
		k = strings.ToLower(strings.TrimSpace(k))
		if v == "" {
			delete(table, k)
			continue
		}
		table[k] = v
	}
	return table
}
