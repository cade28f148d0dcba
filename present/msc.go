package present

import "deedles.dev/xwl/dix"

// initForWindow starts w's frame counter if it isn't running. It
// reports false if the counter can't run because w is not on a
// surface.
func (p *Presenter) initForWindow(w *dix.Window) bool {
	priv := p.priv(w)
	if priv.mscCounterOn {
		return true
	}

	if p.addFrameTask(w, p.countMSC, w) {
		priv.mscCounterOn = true
		return true
	}
	return false
}

func (p *Presenter) countMSC(flags dix.TaskFlags, time uint32, arg any) {
	w := arg.(*dix.Window)
	priv := p.priv(w)

	if flags != 0 {
		priv.mscCounterOn = false
		return
	}

	priv.msc++
	priv.lastMSCUpdate = time
	if !p.addFrameTask(w, p.countMSC, w) {
		priv.mscCounterOn = false
	}
}
