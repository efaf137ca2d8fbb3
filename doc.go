// Package versioner migrates records written under older schema versions to
// the newest one.
//
// A Chain is an ordered registry of versioned schemas, each declaring its own
// version literal in the "v" field, plus optional upgrade functions converting
// a record from the previous schema to the next:
//
//	v1 := dsl.Object().Version(1).Field("title", dsl.String()).Required().MustBuild()
//	v2 := dsl.Extend(v1).Version(2).Field("content", dsl.String()).Required().MustBuild()
//
//	chain := versioner.New().
//	    Register(v1, nil).
//	    Register(v2, func(prev map[string]any) map[string]any {
//	        prev["content"] = ""
//	        return prev
//	    })
//
//	rec, err := chain.SafeUpgradeToLatest(ctx, input)
//
// Design policy:
//   - Registration order is the migration path; version numbers are labels.
//   - Every step is validated; validator Issues surface verbatim.
//   - Problems with the "v" field itself are reported at /v and can be told
//     apart with IsInvalidVersionType, IsUnsupportedVersion and IsMissingVersion.
//   - Register at setup time. Migration and query methods are read-only and
//     safe for concurrent use.
//
// Layout: schema builders live in dsl/, JSON Schema export types in
// jsonschema/, issue messages in i18n/, and a lazily migrating record store in
// store/ (with a Redis backend in store/redisstore).
package versioner
