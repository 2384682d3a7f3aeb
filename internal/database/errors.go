/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package database

import "fmt"

// ErrStoreUnavailable is returned when a connection cannot be opened.
type ErrStoreUnavailable struct {
	Msg string
	Err error
}

// ErrQueryExecution represents errors that occur during statement execution
type ErrQueryExecution struct {
	Msg       string
	Statement string
	Err       error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Msg, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error {
	return e.Err
}

func (e *ErrQueryExecution) Error() string {
	return fmt.Sprintf("query execution error: %s: %v", e.Msg, e.Err)
}

func (e *ErrQueryExecution) Unwrap() error {
	return e.Err
}
