// Package redis wraps go-redis for the task ledger mirror.
//
// TypedStore keeps JSON values under a key prefix together with a sorted
// index, so mirrored task records can be listed in start order after a
// restart.
package redis
