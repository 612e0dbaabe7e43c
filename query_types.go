package odata

import (
	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/query"
	"github.com/nlstn/odata-resolver/internal/resolver"
	"github.com/nlstn/odata-resolver/internal/schemaindex"
)

// Node is a typed expression node, used for operation arguments and binary
// operands.
type Node = query.ASTNode

// LiteralExpr re-exports the constant expression type for external consumers.
type LiteralExpr = query.LiteralExpr

// ConvertExpr re-exports the implicit conversion node inserted by operand
// promotion.
type ConvertExpr = query.ConvertExpr

// BinaryOperator re-exports the binary operator kinds for external consumers.
type BinaryOperator = query.BinaryOperator

// Binary operators accepted by PromoteOperands.
const (
	OpEqual              = query.OpEqual
	OpNotEqual           = query.OpNotEqual
	OpGreaterThan        = query.OpGreaterThan
	OpGreaterThanOrEqual = query.OpGreaterThanOrEqual
	OpLessThan           = query.OpLessThan
	OpLessThanOrEqual    = query.OpLessThanOrEqual
	OpHas                = query.OpHas
	OpAnd                = query.OpAnd
	OpOr                 = query.OpOr
	OpAdd                = query.OpAdd
	OpSub                = query.OpSub
	OpMul                = query.OpMul
	OpDiv                = query.OpDiv
	OpMod                = query.OpMod
)

// Model types.
type (
	Model            = edm.Model
	EdmModel         = edm.EdmModel
	SchemaElement    = edm.SchemaElement
	SchemaType       = edm.SchemaType
	Type             = edm.Type
	TypeReference    = edm.TypeReference
	StructuredType   = edm.StructuredType
	EntityType       = edm.EntityType
	ComplexType      = edm.ComplexType
	EnumType         = edm.EnumType
	Property         = edm.Property
	Term             = edm.Term
	Operation        = edm.Operation
	OperationImport  = edm.OperationImport
	NavigationSource = edm.NavigationSource
	EntityContainer  = edm.EntityContainer
)

// Resolution results and collaborators.
type (
	Config           = resolver.Config
	KeyValue         = resolver.KeyValue
	ParameterBinding = resolver.ParameterBinding
	Promotion        = resolver.Promotion
	LiteralConverter = resolver.LiteralConverter
	Observer         = resolver.Observer
	ObserverFunc     = resolver.ObserverFunc
	Event            = resolver.Event
	ResolutionError  = resolver.ResolutionError
	IndexCache       = schemaindex.Cache
)
