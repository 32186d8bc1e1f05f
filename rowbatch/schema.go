package rowbatch

import (
	"strings"

	"github.com/stratosql/strato/types"
)

type Schema struct {
	columnNames []string
	columnTypes []types.ColumnType
}

func NewSchema(columnNames []string, columnTypes []types.ColumnType) *Schema {
	if len(columnNames) != len(columnTypes) {
		panic("columnNames and columnTypes must be same length")
	}
	return &Schema{
		columnNames: columnNames,
		columnTypes: columnTypes,
	}
}

func (s *Schema) ColumnNames() []string {
	return s.columnNames
}

func (s *Schema) ColumnTypes() []types.ColumnType {
	return s.columnTypes
}

func (s *Schema) ColumnIndex(name string) int {
	for i, colName := range s.columnNames {
		if colName == name {
			return i
		}
	}
	return -1
}

func (s *Schema) String() string {
	sb := strings.Builder{}
	for i, colName := range s.columnNames {
		colType := s.columnTypes[i]
		sb.WriteString(colName)
		sb.WriteString(": ")
		sb.WriteString(colType.String())
		if i != len(s.columnNames)-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}
