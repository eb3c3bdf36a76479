package queryir

import "fmt"

// Statement is a complete query around an optional where expression.
// Implementations: *Select, *ShowTagKeys, *ShowColumns.
type Statement interface {
	// Filter returns the where expression, or nil for none.
	Filter() Expr
	statementNode()
}

// Select reads columns from a table (or measurement / collection).
type Select struct {
	Table           *Literal
	RetentionPolicy *Literal // optional
	Database        *Literal // optional
	Columns         []*Literal
	Where           Expr // nil when unfiltered
}

func (s *Select) Filter() Expr  { return s.Where }
func (*Select) statementNode() {}

// ShowTagKeys lists tag keys, optionally scoped to one measurement.
type ShowTagKeys struct {
	Measurement     *Literal // optional
	RetentionPolicy *Literal // optional
	Database        *Literal // optional
	Where           Expr
}

func (s *ShowTagKeys) Filter() Expr  { return s.Where }
func (*ShowTagKeys) statementNode() {}

// ShowColumns lists the columns of a table.
type ShowColumns struct {
	Table    *Literal
	Database *Literal // optional
}

func (*ShowColumns) Filter() Expr    { return nil }
func (*ShowColumns) statementNode() {}

// SelectArgs are the inputs of NewSelect. Empty strings mean absent.
type SelectArgs struct {
	Table           string
	RetentionPolicy string
	Database        string
	Columns         []string
	Where           any
}

// ShowTagKeysArgs are the inputs of NewShowTagKeys.
type ShowTagKeysArgs struct {
	Measurement     string
	RetentionPolicy string
	Database        string
	Where           any
}

// ShowColumnsArgs are the inputs of NewShowColumns.
type ShowColumnsArgs struct {
	Table    string
	Database string
}

// NewSelect builds a Select with the default registry.
func NewSelect(args SelectArgs) (*Select, error) {
	return defaultBuilder.Select(args)
}

// NewShowTagKeys builds a ShowTagKeys with the default registry.
func NewShowTagKeys(args ShowTagKeysArgs) (*ShowTagKeys, error) {
	return defaultBuilder.ShowTagKeys(args)
}

// NewShowColumns builds a ShowColumns.
func NewShowColumns(args ShowColumnsArgs) (*ShowColumns, error) {
	return defaultBuilder.ShowColumns(args)
}

// Select builds a Select statement. Where accepts raw filter JSON or an
// Expr.
func (b *Builder) Select(args SelectArgs) (*Select, error) {
	table, err := requiredIdentifier("table", args.Table)
	if err != nil {
		return nil, err
	}
	rp, err := optionalIdentifier(args.RetentionPolicy)
	if err != nil {
		return nil, err
	}
	db, err := optionalIdentifier(args.Database)
	if err != nil {
		return nil, err
	}
	columns := make([]*Literal, 0, len(args.Columns))
	for i, c := range args.Columns {
		lit, err := NewIdentifier(c)
		if err != nil {
			return nil, fmt.Errorf("columns[%d]: %w", i, err)
		}
		columns = append(columns, lit)
	}
	where, err := b.BuildWhere(args.Where)
	if err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	return &Select{Table: table, RetentionPolicy: rp, Database: db, Columns: columns, Where: where}, nil
}

// ShowTagKeys builds a ShowTagKeys statement.
func (b *Builder) ShowTagKeys(args ShowTagKeysArgs) (*ShowTagKeys, error) {
	m, err := optionalIdentifier(args.Measurement)
	if err != nil {
		return nil, err
	}
	rp, err := optionalIdentifier(args.RetentionPolicy)
	if err != nil {
		return nil, err
	}
	db, err := optionalIdentifier(args.Database)
	if err != nil {
		return nil, err
	}
	where, err := b.BuildWhere(args.Where)
	if err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	return &ShowTagKeys{Measurement: m, RetentionPolicy: rp, Database: db, Where: where}, nil
}

// ShowColumns builds a ShowColumns statement.
func (b *Builder) ShowColumns(args ShowColumnsArgs) (*ShowColumns, error) {
	table, err := requiredIdentifier("table", args.Table)
	if err != nil {
		return nil, err
	}
	db, err := optionalIdentifier(args.Database)
	if err != nil {
		return nil, err
	}
	return &ShowColumns{Table: table, Database: db}, nil
}

func requiredIdentifier(field, name string) (*Literal, error) {
	if name == "" {
		return nil, invalidQuery(nil, "%s is required", field)
	}
	return NewIdentifier(name)
}

func optionalIdentifier(name string) (*Literal, error) {
	if name == "" {
		return nil, nil
	}
	return NewIdentifier(name)
}
