package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionSetPayloadKey returns the cache key for a question set's JSON payload
func (r *CacheKeyStruct) QuestionSetPayloadKey(setID string) string {
	return fmt.Sprintf("questionset:%s:payload", setID)
}

var CacheKey = NewCacheKeyStruct()
