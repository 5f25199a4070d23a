/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

// Datasource bundles the ledger and the request store. It is created once
// per process and handed to the service; nothing here is global.
type Datasource struct {
	*Ledger
	*RequestStore
}

var _ IDataSource = (*Datasource)(nil)

// NewDataSource returns an empty in-memory datasource.
func NewDataSource() *Datasource {
	return &Datasource{
		Ledger:       NewLedger(),
		RequestStore: NewRequestStore(),
	}
}
