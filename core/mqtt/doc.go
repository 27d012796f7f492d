// Package mqtt defines how schedules are handed to machine controllers: one
// retained plan message per machine, optionally acknowledged.
package mqtt
