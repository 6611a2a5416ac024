// Package service orchestrates the stores, the tag-indexed cache, and the
// mutation bookkeeping behind the API surface. Services own transaction
// boundaries and cache invalidation; stores own SQL; handlers own HTTP.
package service
