/*
Copyright 2026 The Ordis Authors

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

package sqlite

import (
	"database/sql"
	"fmt"
)

const requiredSchemaVersion = 1

// SQLCreateTables returns the schema. Keys are BLOBs so collation is
// plain memcmp, matching the sorted.KeyValue byte order.
func SQLCreateTables() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS rows (
 k BLOB NOT NULL PRIMARY KEY,
 v BLOB)`,

		`CREATE TABLE IF NOT EXISTS meta (
 metakey VARCHAR(255) NOT NULL PRIMARY KEY,
 value VARCHAR(255) NOT NULL)`,
	}
}

func initDB(db *sql.DB) error {
	for _, tableSQL := range SQLCreateTables() {
		if _, err := db.Exec(tableSQL); err != nil {
			return err
		}
	}
	_, err := db.Exec(fmt.Sprintf(`REPLACE INTO meta VALUES ('version', '%d')`, requiredSchemaVersion))
	return err
}
