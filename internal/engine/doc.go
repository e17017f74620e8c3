// Package engine implements the contribution workflow on top of the catalog
// store.
//
// Propose stages a user's diff: adds become pending items, updates become
// pending shadows with a lock on the item they would replace, deletes lock
// their target. Verify applies a verifier's decision, committing or reverting
// the staged rows and finalizing the contribution. Both operations run inside
// a single catalog transaction, so a failed check leaves no partial staging
// behind.
//
// Permission and verifier checks delegate to identity.Authorizer; per-field
// validation and uniqueness rules come from fields.PolicyFor.
package engine
