// Package render dispatches expression trees and statements to the backend
// compiler of a target.
//
// Result types depend on the target:
//
//	influx  string       InfluxQL
//	mysql   string       MySQL, values inlined
//	mongo   bson.M       filter document (Expr)
//	        *Find        find() call (Statement)
//	pandas  string       boolean mask expression
//
// Text turns any of these into a printable string.
package render

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/querify/internal/queryinflux"
	"github.com/roach88/querify/internal/queryir"
	"github.com/roach88/querify/internal/querymongo"
	"github.com/roach88/querify/internal/querypandas"
	"github.com/roach88/querify/internal/querysql"
)

// ParseTarget converts a target name such as "mysql" to a Target.
func ParseTarget(s string) (queryir.Target, error) {
	return queryir.ParseTarget(s)
}

// Expr renders expr for target.
func Expr(expr queryir.Expr, target queryir.Target) (any, error) {
	switch target {
	case queryir.TargetInflux:
		return queryinflux.NewCompiler().CompileExpr(expr)
	case queryir.TargetMySQL:
		sql, _, err := querysql.NewCompiler().CompileExpr(expr)
		return sql, err
	case queryir.TargetMongo:
		return querymongo.NewCompiler().CompileExpr(expr)
	case queryir.TargetPandas:
		return querypandas.NewCompiler().CompileExpr(expr)
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}

// Statement compiles stmt for target.
func Statement(stmt queryir.Statement, target queryir.Target) (any, error) {
	switch target {
	case queryir.TargetInflux:
		return queryinflux.NewCompiler().Compile(stmt)
	case queryir.TargetMySQL:
		sql, _, err := querysql.NewCompiler().Compile(stmt)
		return sql, err
	case queryir.TargetMongo:
		return querymongo.NewCompiler().Compile(stmt)
	case queryir.TargetPandas:
		return nil, queryir.Unsupportedf(queryir.TargetPandas, "%T has no pandas form", stmt)
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}

// Text returns the printable form of a rendered value. Documents become
// canonical extended JSON.
func Text(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bson.M, *querymongo.Find:
		data, err := querymongo.MarshalJSON(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("cannot print rendered value of type %T", value)
	}
}

// ExprText renders expr for target and returns its printable form.
func ExprText(expr queryir.Expr, target queryir.Target) (string, error) {
	v, err := Expr(expr, target)
	if err != nil {
		return "", err
	}
	return Text(v)
}

// StatementText compiles stmt for target and returns its printable form.
func StatementText(stmt queryir.Statement, target queryir.Target) (string, error) {
	v, err := Statement(stmt, target)
	if err != nil {
		return "", err
	}
	return Text(v)
}
