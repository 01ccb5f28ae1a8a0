//go:build !slotdebug

package slot

const debugChecks = false

type resumeGuard struct{}

func (resumeGuard) enter() {}
func (resumeGuard) exit()  {}

type affinity struct{}

func (affinity) pin()   {}
func (affinity) check() {}
