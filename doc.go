// Package sokoni implements the account, authorization, and approval core of
// the Sokoni marketplace.
//
// Accounts register with a role tag. Public buyers and the CEO are usable
// immediately; every other role enters an approval workflow where an admin or
// the CEO rules on an elevation request. A single Guard answers every
// privileged-operation question so the role matrix lives in one place, and
// the ApprovalEngine guarantees each request is decided exactly once.
//
// Persistence is Bun over SQLite, sessions are signed JWTs, and the HTTP
// surface is a JSON API on Fiber. Subpackages add the marketplace catalog
// (marketplace), M-Pesa payments (payments), and the route middleware
// (middleware).
package sokoni
