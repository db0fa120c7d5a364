// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package bdd implements the trusted BDD engine at the core of the PBIP
checker: a Reduced Ordered Binary Decision Diagram (ROBDD) kernel whose
every node allocation emits the four LRAT defining clauses (HD, LD, HU,
LU) that witness the node's meaning. The plain Apply/Ite/Exist
operations compute results only; the justifying variants (JustifyImply,
ApplyAndJustify, ApplyAndJustifyImply, ExistJustify, ConstructClauseBdd)
also emit the LRAT clauses that justify the results they produce.

Basics

Each BDD manager has a number of variables, Varnum, declared when it is
initialized (using the function New) and only ever increased afterwards
(SetVarnum, ExtVarnum), and each variable is
represented by an (integer) index in the interval [0..Varnum), called a
level.

Most operations over BDD return a Node; that is a pointer to a "vertex"
in the BDD that includes a variable level, and the address of the low
and high branch for this node. We use integer to represent the address
of Nodes, with the convention that 1 (respectively 0) is the address of
the constant function True (respectively False).

Trusted construction

Every node beyond the two constants corresponds to an extension
variable of the proof being checked, and every allocation of a new node
id emits its defining clauses through an injected clause store before
the id is ever handed back to a caller: nothing in this package ever
asserts a BDD/formula relationship without a clause backing it.

Automatic memory management

The library is written in pure Go, without CGo or other dependencies.
We take care of BDD resizing and memory management directly in the
library, using a mark-and-sweep collector that keeps the nodes on the
internal reference stack and the nodes with a positive reference count;
"external" references to BDD nodes held by user code are counted through
finalizers, so they are managed like ordinary Go values.
*/
package bdd
