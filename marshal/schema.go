/*
Copyright The TRDP-Go Authors.

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

package marshal

import (
	"fmt"
	"sort"
)

// Dynamic marks a Field's Count as a wire-carried uint16, read or written
// ahead of the element run rather than fixed by the schema.
const Dynamic = -1

// Field is one element of a Dataset's layout: either a scalar type or a
// nested dataset, repeated Count times (1 for a plain scalar, N for a
// fixed array, Dynamic for a wire-prefixed count).
type Field struct {
	Name       string
	Type       WireType // ignored when IsDataset is true
	IsDataset  bool
	DatasetRef uint32 // dataset ID this field embeds, when IsDataset
	Count      int
}

// Dataset is one dataset dictionary entry: an ID and its ordered fields.
type Dataset struct {
	ID     uint32
	Fields []Field
}

// ComIDEntry maps one ComID to the dataset it carries.
type ComIDEntry struct {
	ComID     uint32
	DatasetID uint32
}

// Tables is the loaded dataset dictionary: every known Dataset plus the
// ComID -> dataset lookup. Both slices are kept sorted by key so lookups
// are sort.Search, not linear scans.
type Tables struct {
	datasets []Dataset
	comIDs   []ComIDEntry
}

// NewTables builds a Tables from unordered dataset and ComID lists,
// sorting both for binary search.
func NewTables(datasets []Dataset, comIDs []ComIDEntry) *Tables {
	t := &Tables{
		datasets: append([]Dataset(nil), datasets...),
		comIDs:   append([]ComIDEntry(nil), comIDs...),
	}
	sort.Slice(t.datasets, func(i, j int) bool { return t.datasets[i].ID < t.datasets[j].ID })
	sort.Slice(t.comIDs, func(i, j int) bool { return t.comIDs[i].ComID < t.comIDs[j].ComID })
	return t
}

// Dataset looks up a dataset by ID.
func (t *Tables) Dataset(id uint32) (*Dataset, bool) {
	i := sort.Search(len(t.datasets), func(i int) bool { return t.datasets[i].ID >= id })
	if i < len(t.datasets) && t.datasets[i].ID == id {
		return &t.datasets[i], true
	}
	return nil, false
}

// DatasetForComID resolves the dataset ID registered to serve a ComID.
func (t *Tables) DatasetForComID(comID uint32) (uint32, bool) {
	i := sort.Search(len(t.comIDs), func(i int) bool { return t.comIDs[i].ComID >= comID })
	if i < len(t.comIDs) && t.comIDs[i].ComID == comID {
		return t.comIDs[i].DatasetID, true
	}
	return 0, false
}

func (f Field) String() string {
	if f.IsDataset {
		return fmt.Sprintf("%s dataset(%d)[%d]", f.Name, f.DatasetRef, f.Count)
	}
	return fmt.Sprintf("%s type(%d)[%d]", f.Name, f.Type, f.Count)
}
