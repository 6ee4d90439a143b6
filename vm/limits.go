package vm

// MaxHistSize bounds how far back a history index may reach
// (spec.md §4.C "history index outside [-MAX_HIST_SIZE, 0]").
const MaxHistSize = 64

// MaxVars bounds the number of user-declared variables a single
// program may allocate (spec.md §4.C "maximum variable count exceeded").
const MaxVars = 16
