package restpf

// Package restpf provides:
//
// - A declarative schema tree (Node) with per-method appearance and unknown-field policies
// - State trees built from raw decoded values in input or output mode
// - Validation of a state tree against the policies of an HTTP method (Issues)
// - Serialization of output states into the {type, value} wire envelope
//
// Design policy:
// - Keep only the schema and state model in the root package.
// - Place schema sugar under dsl/, callbacks under callback/, dependency planning under
//   scheduler/, the request pipeline under pipeline/ and the HTTP binding under web/.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  attrs, err := dsl.Object().
//      Field("foo", dsl.Integer()).
//      Field("bar", dsl.String()).
//      Build()
//
//  in, err := restpf.BuildInput(attrs, raw)
//  if err := restpf.Validate(in, restpf.POST); err != nil {
//      iss, _ := restpf.AsIssues(err)
//      ...
//  }
//
//  out, err := restpf.BuildOutput(attrs, merged)
//  doc, ok := restpf.Serialize(out)
