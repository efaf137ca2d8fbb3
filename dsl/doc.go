// Package dsl provides the schema builders used to describe each version of a
// record registered on a versioner.Chain.
//
// Overview
//   - Builder API: declare object semantics (unknown/required/default/refine) with Object()/Field()/Required()/UnknownStrict()/MustBuild().
//   - Versions: Version(n) declares the required "v" literal; Extend(prev) starts the next version from the previous one.
//   - Primitives: String()/Bool()/Number()/Int()/Literal()/Enum()/DateTime().
//   - Containers: Array(elem), Map(val)/MapAny(), Union(discriminator).Variant(tag, obj), Nullable(s).
//   - AnyAdapter: adapt any Schema[T] via SchemaOf[T](s) to pass it into Field.
//
// Every schema returns a new normalized value from Parse and never modifies
// its input. Issues are reported as JSON Pointers relative to the value being
// parsed; containers rebase child issues under their own path. Keys are
// visited in sorted order so issue order is stable.
//
// File layout (roles)
//   - object_builder.go: objectBuilder/fieldStep, Extend and Build/MustBuild.
//   - object_core.go: ObjectSchema Parse/Validate/JSONSchema and VersionLiteral.
//   - primitives.go, time.go: scalar schemas.
//   - array.go, map.go, union.go: container schemas.
//   - adapter.go: AnyAdapter, SchemaOf, Nullable, Any.
//
// Example
//
//	v1 := dsl.Object().
//	    Version(1).
//	    Field("title", dsl.String()).Required().
//	    MustBuild()
//
//	v2 := dsl.Extend(v1).
//	    Version(2).
//	    Field("tags", dsl.Array(dsl.String())).Default([]any{}).
//	    Field("createdAt", dsl.DateTime()).Required().
//	    MustBuild()
//
//	chain := versioner.New().
//	    Register(v1, nil).
//	    Register(v2, func(prev map[string]any) map[string]any {
//	        prev["createdAt"] = "1970-01-01T00:00:00Z"
//	        return prev
//	    })
package dsl
