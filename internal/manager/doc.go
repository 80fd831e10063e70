// Package manager owns the lifecycle of loaded models and their adapters.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, readiness, handle lookup.
//   - config.go: Config and package defaults; New applies defaults.
//   - deps.go: Store, Resolver and Fetcher interfaces the manager depends on.
//   - memstore.go: in-memory Store used when no database is configured.
//   - types.go: internal state types (State, Handle).
//   - errors.go: error types and predicates (IsModelNotFound, IsModelNotLoaded, ...).
//   - models.go: RegisterModel, FindModel, ListModels, DeleteModel.
//   - adapters.go: RegisterAdapter, AttachAdapter, DetachAdapter, adapter queries.
//   - generate.go, prompt.go: chat generation against a resident handle.
//   - restore.go: reloading persisted models at startup.
//   - status_report.go: Status reporting for /v1/status.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: prometheus collectors for loads, generations and adapter ops.
//
// Build tags and runtimes:
//
//   - In-process llama:
//     Uses the go-llama.cpp runtime. Enabled with `-tags=llama`.
//     Files: runtime_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub exists when the tag is not set: runtime_llama_stub.go.
//
// External packages should treat this package as the orchestration layer and use
// public methods only. Handle internals are subject to change.
package manager
