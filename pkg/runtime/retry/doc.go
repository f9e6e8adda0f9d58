/*
Package retry defines the Policy governing the re-invocation of failed reconciliations.

A retry chain starts with the first execution of a reconciliation (attempt 0). After each failed
execution the driver asks the Policy whether another execution is allowed and after which delay,
then advances the State with OnFailure; MaxAttempts is the number of retries, so a chain runs
at most MaxAttempts+1 executions.

The Policy only computes values; scheduling the next execution is up to the caller.
*/
package retry
