// Package dsl provides a fluent schema DSL for restpf.
//
// Overview
//   - Builder API: declare object fields and per-method policies with
//     Object()/Field()/Appear()/Required()/Optional()/ReadOnly() then Build()/MustBuild().
//   - Leaves: Bool()/Integer()/Float()/String()/PrimitiveArray()/PrimitiveObject().
//   - Containers: Array(elem) and Tuple(elems...).
//   - YAML: FromYAML(data) and Spec decode the same trees from configuration files.
//
// Quickstart
//
//	attrs := dsl.Object().
//	    Field("foo", dsl.Integer()).
//	    Field("a", dsl.Object().Field("b", dsl.String())).
//	    Field("id", dsl.Integer()).ReadOnly().
//	    MustBuild()
//
// Policies given on a Field apply to the field node; policies given on a
// builder apply to the node it builds.
package dsl
