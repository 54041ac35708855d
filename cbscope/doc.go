// Package cbscope bridges short-lived callbacks to APIs that expect
// callbacks valid for the whole program lifetime. A scope owns every
// registration made inside it, each registration is guarded by a validity
// flag, and the scope deregisters and invalidates whatever is still
// outstanding before the entry point returns. An invocation that arrives
// after invalidation is stopped deterministically instead of touching
// state that may no longer be valid.
package cbscope
