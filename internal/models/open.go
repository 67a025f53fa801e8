package models

import "github.com/tatianab/potion-shop/internal/logging"

// OpenStore returns the SQLite store when useSQLite is set and the JSON file
// store otherwise. The returned close function is never nil.
func OpenStore(path, name string, useSQLite bool, defaults func() *WorldState, log logging.Printer) (Store, func() error, error) {
	if !useSQLite {
		return NewFileStore(path, defaults, log), func() error { return nil }, nil
	}
	s, err := OpenSQLite(path, name, defaults, log)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
