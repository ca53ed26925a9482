// Package expr implements the boolean condition language used by condition
// steps
//
// The grammar is closed: literals, name lookups with dotted or bracketed
// access, comparison, membership, and boolean operators. Expressions cannot
// call functions or reach anything outside the values they are given
package expr
