package relation

import "github.com/wbrown/janus-strata/datalog"

// tuple is the set of fixed-width arrays a relation can be specialised
// over. The width is arity plus auxiliary arity.
type tuple interface {
	[0]datalog.RamDomain | [1]datalog.RamDomain | [2]datalog.RamDomain |
	[3]datalog.RamDomain | [4]datalog.RamDomain | [5]datalog.RamDomain |
	[6]datalog.RamDomain | [7]datalog.RamDomain | [8]datalog.RamDomain |
	[9]datalog.RamDomain | [10]datalog.RamDomain | [11]datalog.RamDomain |
	[12]datalog.RamDomain | [13]datalog.RamDomain | [14]datalog.RamDomain |
	[15]datalog.RamDomain | [16]datalog.RamDomain | [17]datalog.RamDomain |
	[18]datalog.RamDomain | [19]datalog.RamDomain | [20]datalog.RamDomain |
	[21]datalog.RamDomain | [22]datalog.RamDomain | [23]datalog.RamDomain |
	[24]datalog.RamDomain | [25]datalog.RamDomain | [26]datalog.RamDomain |
	[27]datalog.RamDomain | [28]datalog.RamDomain | [29]datalog.RamDomain |
	[30]datalog.RamDomain | [31]datalog.RamDomain | [32]datalog.RamDomain |
	[33]datalog.RamDomain | [34]datalog.RamDomain | [35]datalog.RamDomain |
	[36]datalog.RamDomain | [37]datalog.RamDomain | [38]datalog.RamDomain |
	[39]datalog.RamDomain | [40]datalog.RamDomain | [41]datalog.RamDomain |
	[42]datalog.RamDomain | [43]datalog.RamDomain | [44]datalog.RamDomain |
	[45]datalog.RamDomain | [46]datalog.RamDomain | [47]datalog.RamDomain |
	[48]datalog.RamDomain | [49]datalog.RamDomain | [50]datalog.RamDomain |
	[51]datalog.RamDomain | [52]datalog.RamDomain | [53]datalog.RamDomain |
	[54]datalog.RamDomain | [55]datalog.RamDomain | [56]datalog.RamDomain |
	[57]datalog.RamDomain | [58]datalog.RamDomain | [59]datalog.RamDomain |
	[60]datalog.RamDomain | [61]datalog.RamDomain | [62]datalog.RamDomain |
	[63]datalog.RamDomain | [64]datalog.RamDomain
}

// factory builds one specialisation; deletable picks the flavour
type factory func(cfg Config) Relation

func specialise[T tuple](cfg Config) Relation {
	base := newBTreeRelation[T](cfg)
	if cfg.Deletable {
		return &deletableRelation[T]{btreeRelation: base}
	}
	return base
}

// widths holds one instantiation per supported tuple width
var widths = [MaxArity + 1]factory{
	specialise[[0]datalog.RamDomain],
	specialise[[1]datalog.RamDomain],
	specialise[[2]datalog.RamDomain],
	specialise[[3]datalog.RamDomain],
	specialise[[4]datalog.RamDomain],
	specialise[[5]datalog.RamDomain],
	specialise[[6]datalog.RamDomain],
	specialise[[7]datalog.RamDomain],
	specialise[[8]datalog.RamDomain],
	specialise[[9]datalog.RamDomain],
	specialise[[10]datalog.RamDomain],
	specialise[[11]datalog.RamDomain],
	specialise[[12]datalog.RamDomain],
	specialise[[13]datalog.RamDomain],
	specialise[[14]datalog.RamDomain],
	specialise[[15]datalog.RamDomain],
	specialise[[16]datalog.RamDomain],
	specialise[[17]datalog.RamDomain],
	specialise[[18]datalog.RamDomain],
	specialise[[19]datalog.RamDomain],
	specialise[[20]datalog.RamDomain],
	specialise[[21]datalog.RamDomain],
	specialise[[22]datalog.RamDomain],
	specialise[[23]datalog.RamDomain],
	specialise[[24]datalog.RamDomain],
	specialise[[25]datalog.RamDomain],
	specialise[[26]datalog.RamDomain],
	specialise[[27]datalog.RamDomain],
	specialise[[28]datalog.RamDomain],
	specialise[[29]datalog.RamDomain],
	specialise[[30]datalog.RamDomain],
	specialise[[31]datalog.RamDomain],
	specialise[[32]datalog.RamDomain],
	specialise[[33]datalog.RamDomain],
	specialise[[34]datalog.RamDomain],
	specialise[[35]datalog.RamDomain],
	specialise[[36]datalog.RamDomain],
	specialise[[37]datalog.RamDomain],
	specialise[[38]datalog.RamDomain],
	specialise[[39]datalog.RamDomain],
	specialise[[40]datalog.RamDomain],
	specialise[[41]datalog.RamDomain],
	specialise[[42]datalog.RamDomain],
	specialise[[43]datalog.RamDomain],
	specialise[[44]datalog.RamDomain],
	specialise[[45]datalog.RamDomain],
	specialise[[46]datalog.RamDomain],
	specialise[[47]datalog.RamDomain],
	specialise[[48]datalog.RamDomain],
	specialise[[49]datalog.RamDomain],
	specialise[[50]datalog.RamDomain],
	specialise[[51]datalog.RamDomain],
	specialise[[52]datalog.RamDomain],
	specialise[[53]datalog.RamDomain],
	specialise[[54]datalog.RamDomain],
	specialise[[55]datalog.RamDomain],
	specialise[[56]datalog.RamDomain],
	specialise[[57]datalog.RamDomain],
	specialise[[58]datalog.RamDomain],
	specialise[[59]datalog.RamDomain],
	specialise[[60]datalog.RamDomain],
	specialise[[61]datalog.RamDomain],
	specialise[[62]datalog.RamDomain],
	specialise[[63]datalog.RamDomain],
	specialise[[64]datalog.RamDomain],
}

type specKey struct {
	arity     int
	auxiliary int
	deletable bool
}

// dispatch maps (arity, auxiliary arity, deletable) onto a specialisation.
// Combinations absent from the table are unsupported.
var dispatch = func() map[specKey]factory {
	table := make(map[specKey]factory)
	for aux := 0; aux <= MaxAuxiliaryArity; aux++ {
		for arity := 0; arity+aux <= MaxArity; arity++ {
			f := widths[arity+aux]
			table[specKey{arity, aux, false}] = f
			table[specKey{arity, aux, true}] = f
		}
	}
	return table
}()
