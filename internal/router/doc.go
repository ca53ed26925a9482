// Package router provides TaskRouter implementations
//
// HTTPRouter forwards tasks to a remote agent service, KeywordRouter
// dispatches tasks to local handlers by keyword, and RetryRouter wraps any
// router with a backoff retry policy
package router
