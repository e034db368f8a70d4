// Package article implements the twelve phase handlers that turn an article
// identifier into a published wiki document.
//
// Each handler reads the fields earlier phases left on the job record and
// writes its own results back. External systems are reached through the
// small collaborator interfaces declared in deps.go; NewDeps wires the
// concrete HTTP and subprocess adapters from configuration, and tests pass
// fakes instead. NewPhaseSet assembles the handlers in the shape the
// pipeline runner expects.
package article
