package formulation

import "github.com/kilianp07/unitcommit/core/milp"

// objective is total production plus startup plus shutdown cost.
func (b *builder) objective() milp.Expr {
	var e milp.Expr
	for g, gen := range b.in.Generators {
		for t := 0; t < b.in.Periods; t++ {
			e = e.Plus(b.v.P[g][t], gen.Cost).
				Plus(b.v.U[g][t], gen.StartupCost).
				Plus(b.v.V[g][t], gen.ShutdownCost)
		}
	}
	return e
}
