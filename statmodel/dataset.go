package statmodel

import (
	"fmt"
)

// Dataset is an immutable column-major data table.  Each column has a
// name and all columns have the same length.
type Dataset struct {
	data  [][]Dtype
	names []string
}

// NewDataset constructs a Dataset from columns and their names.  The
// columns must all have the same length and the names must be unique.
func NewDataset(data [][]Dtype, names []string) Dataset {

	if len(data) != len(names) {
		msg := fmt.Sprintf("statmodel: %d columns but %d names", len(data), len(names))
		panic(msg)
	}

	seen := make(map[string]bool)
	for j, na := range names {
		if seen[na] {
			msg := fmt.Sprintf("statmodel: duplicate column name '%s'", na)
			panic(msg)
		}
		seen[na] = true
		if len(data[j]) != len(data[0]) {
			msg := fmt.Sprintf("statmodel: column '%s' has length %d, expected %d",
				na, len(data[j]), len(data[0]))
			panic(msg)
		}
	}

	return Dataset{data: data, names: names}
}

// Names returns the column names, in column order.
func (ds Dataset) Names() []string {
	return ds.names
}

// Data returns the data columns.  The order agrees with Names.
func (ds Dataset) Data() [][]Dtype {
	return ds.data
}

// NumObs returns the number of rows in the table.
func (ds Dataset) NumObs() int {
	if len(ds.data) == 0 {
		return 0
	}
	return len(ds.data[0])
}

// Column returns the column with the given name.
func (ds Dataset) Column(name string) ([]Dtype, error) {
	for j, na := range ds.names {
		if na == name {
			return ds.data[j], nil
		}
	}
	return nil, fmt.Errorf("statmodel: column '%s' not found in dataset", name)
}

// HasColumn reports whether the dataset contains a column with the given name.
func (ds Dataset) HasColumn(name string) bool {
	_, err := ds.Column(name)
	return err == nil
}

// WithColumn returns a new Dataset that shares the existing columns and
// has one additional column appended.
func (ds Dataset) WithColumn(name string, col []Dtype) (Dataset, error) {

	if ds.HasColumn(name) {
		return Dataset{}, fmt.Errorf("statmodel: column '%s' already present in dataset", name)
	}
	if len(ds.data) > 0 && len(col) != ds.NumObs() {
		return Dataset{}, fmt.Errorf("statmodel: column '%s' has length %d, expected %d",
			name, len(col), ds.NumObs())
	}

	data := make([][]Dtype, len(ds.data), len(ds.data)+1)
	copy(data, ds.data)
	data = append(data, col)

	names := make([]string, len(ds.names), len(ds.names)+1)
	copy(names, ds.names)
	names = append(names, name)

	return Dataset{data: data, names: names}, nil
}
