// Package acl is the anti-corruption layer between the engine and the hosted
// quote table reached over PostgREST.
//
// PostgREST rows, error bodies and RPC results stay in this package.
// Callers only see domain.Quote values and domain errors:
//
//   - PGRST116, 22P02 and a bare 404 become domain.NotFoundError on calls
//     that name a quote id
//   - on list queries every failure, 404 included, is domain.UnavailableError
//   - rejected keys, RLS denials and a missing RPC become domain.UnavailableError
//   - every other non-2xx status is unavailable
//
// Rows that fail domain.Quote.Validate are dropped and logged rather than
// failing the whole page.
package acl
