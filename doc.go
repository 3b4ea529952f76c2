// Package handoff implements a federated identity handoff between a
// primary application and this secondary application: the primary app
// authenticates the user, then redirects back with a bearer token that
// this app decodes, resolves against its own user directory, and
// exchanges for a cookie session.
//
// Flow:
//   - AuthFlow models the per-attempt state machine. Every attempt
//     starts anonymous, moves to pending once a credential arrives,
//     and ends authenticated or failed. Failed is terminal for the
//     attempt; the next attempt starts a fresh flow.
//   - Auther coordinates the flow: it decodes the token, resolves or
//     creates the user record, records the audit entry, and mints the
//     session bearer. The stub provider path fabricates a demo
//     identity for named providers without calling out.
//
// Token decoding:
//   - TokenDecoder abstracts the trust model. UnverifiedDecoder parses
//     shape only, mirroring the demo's trust in the primary app.
//     JWKSDecoder verifies signatures against a published key set.
//     MultiDecoder composes them, trying each in order.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter used by Auther for
//     login, account-creation, and logout events. Sink errors are
//     logged and swallowed so auditing never blocks authentication.
package handoff
