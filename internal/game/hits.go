package game

import (
	"fightcore/internal/fixmath"
	"fightcore/internal/game/physics"
)

// HitResult is one attacker's outcome for a tick.
type HitResult struct {
	Landed  bool           // a hitbox touched the opponent's hurtbox
	Applied bool           // the victim took the hit (false if already in hitstun or on clank)
	Damage  fixmath.Scalar // damage applied
}

// TickReport summarizes the hit step of one Advance. Hits is indexed by attacker slot.
type TickReport struct {
	Tick  Tick
	Clank bool
	Hits  [FighterCount]HitResult
}

// Any reports whether anything connected this tick.
func (r TickReport) Any() bool {
	return r.Clank || r.Hits[0].Landed || r.Hits[1].Landed
}

func hitOnHurt(a, b *physics.Box[BoxProps]) bool {
	return a.Props.Kind == BoxHit && b.Props.Kind == BoxHurt
}

// resolveHits reads this tick's overlaps and applies them. Only the first contact
// per attacker counts. When both fighters land on the same tick the attacks clank.
func (s *Simulation) resolveHits(tick Tick) TickReport {
	report := TickReport{Tick: tick}

	var props [FighterCount]BoxProps
	for _, c := range s.world.Overlaps(hitOnHurt) {
		atk := c.A.Handle
		if atk < 0 || atk >= FighterCount || report.Hits[atk].Landed {
			continue
		}
		report.Hits[atk].Landed = true
		props[atk] = c.A.Props
	}

	fighters := &s.state.Fighters
	if report.Hits[0].Landed && report.Hits[1].Landed {
		report.Clank = true
		for i := range fighters {
			fighters[i].ApplyClank()
		}
		return report
	}

	for atk := range report.Hits {
		if !report.Hits[atk].Landed {
			continue
		}
		victim := &fighters[FighterCount-1-atk]
		if victim.Mode == ModeHitstun {
			continue
		}
		victim.ApplyHit(props[atk])
		report.Hits[atk].Applied = true
		report.Hits[atk].Damage = props[atk].Damage
	}
	return report
}
