package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexBadIndent          Code = 1004
	LexBadEscape          Code = 1005

	// syntax
	SynInfo              Code = 2000
	SynUnexpectedToken   Code = 2001
	SynExpectExpression  Code = 2002
	SynExpectIdentifier  Code = 2003
	SynExpectColon       Code = 2004
	SynExpectIndent      Code = 2005
	SynUnclosedDelimiter Code = 2006
	SynBadAssignTarget   Code = 2007
	SynNoNodeAtLine      Code = 2008
	SynUnsupported       Code = 2009
	SynAmbiguousSite     Code = 2010

	// capture: walker and resolver
	CapInfo                      Code = 3000
	CapUnresolvedFreeVariable    Code = 3001
	CapReservedNameUsed          Code = 3002
	CapUnconvertible             Code = 3003
	CapSelfReferencingContainer  Code = 3004
	CapNamespaceAttributeMissing Code = 3005
	CapBadScopedBlock            Code = 3006
	CapMissingSource             Code = 3007
	CapDepthExceeded             Code = 3008
	CapBaseNotRegistered         Code = 3009

	// conversion and result transform
	CnvInfo           Code = 4000
	CnvConversion     Code = 4001
	CnvUnknownID      Code = 4002
	CnvBadPayload     Code = 4003
	CnvRemoteMissing  Code = 4004
	CnvCyclicResult   Code = 4005
	CnvResultTooLarge Code = 4006

	// host runtime
	RunInfo          Code = 5000
	RunError         Code = 5001
	RunUnconvertible Code = 5002

	// store, wire and io
	StoInfo         Code = 6000
	StoDuplicateID  Code = 6001
	StoUnknownKind  Code = 6002
	StoSchema       Code = 6003
	IOLoadFileError Code = 6004
	StoConfig       Code = 6005
	StoIDSpace      Code = 6006
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                  "Unknown error",
		LexInfo:                      "Lexical information",
		LexUnknownChar:               "Unknown character",
		LexUnterminatedString:        "Unterminated string literal",
		LexBadNumber:                 "Malformed numeric literal",
		LexBadIndent:                 "Inconsistent indentation",
		LexBadEscape:                 "Invalid escape sequence",
		SynInfo:                      "Syntax information",
		SynUnexpectedToken:           "Unexpected token",
		SynExpectExpression:          "Expected expression",
		SynExpectIdentifier:          "Expected identifier",
		SynExpectColon:               "Expected ':'",
		SynExpectIndent:              "Expected an indented block",
		SynUnclosedDelimiter:         "Unclosed delimiter",
		SynBadAssignTarget:           "Invalid assignment target",
		SynNoNodeAtLine:              "No definition starts at line",
		SynUnsupported:               "Unsupported statement",
		SynAmbiguousSite:             "More than one definition starts here",
		CapInfo:                      "Capture information",
		CapUnresolvedFreeVariable:    "Unresolved free variable",
		CapReservedNameUsed:          "Reserved name used as identifier",
		CapUnconvertible:             "Value has no remote representation",
		CapSelfReferencingContainer:  "Container references itself",
		CapNamespaceAttributeMissing: "Namespace has no such attribute",
		CapBadScopedBlock:            "Scoped block cannot be captured",
		CapMissingSource:             "Source text unavailable",
		CapDepthExceeded:             "Capture depth exceeded",
		CapBaseNotRegistered:         "Base class was not registered first",
		CnvInfo:                      "Conversion information",
		CnvConversion:                "Conversion failed",
		CnvUnknownID:                 "Unknown object id",
		CnvBadPayload:                "Malformed primitive payload",
		CnvRemoteMissing:             "Remote object reference not found",
		CnvCyclicResult:              "Result value contains a cycle",
		CnvResultTooLarge:            "Result exceeds byte budget",
		RunInfo:                      "Runtime information",
		RunError:                     "Runtime error",
		RunUnconvertible:             "Use of an unconvertible value",
		StoInfo:                      "Store information",
		StoDuplicateID:               "Definition already written",
		StoUnknownKind:               "Unknown definition kind",
		StoSchema:                    "Store schema mismatch",
		IOLoadFileError:              "I/O load file error",
		StoConfig:                    "Invalid configuration",
		StoIDSpace:                   "Object id space exhausted",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CAP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("CNV%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("RUN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("STO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
