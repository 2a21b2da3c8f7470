package config

import "fmt"

// StoreKeyStruct builds the namespaced keys used in the durable local
// store. Both durable shared resources are namespaced by user so
// concurrent sessions for different users never collide.
type StoreKeyStruct struct{}

// SessionDeadlineKey returns the key holding the absolute deadline of an
// active session, scoped to (examID, userID).
func (k *StoreKeyStruct) SessionDeadlineKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:deadline", userID, examID)
}

// UserResultsKey returns the hash key holding a user's TestResult
// collection, one field per result ID.
func (k *StoreKeyStruct) UserResultsKey(userID string) string {
	return fmt.Sprintf("user:%s:results", userID)
}

var StoreKey = &StoreKeyStruct{}
