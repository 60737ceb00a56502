package retarget

// MirrorCorrector swaps every left/right joint pair and negates the
// horizontal axis so the avatar mirrors the user like a mirror would.
// Applying it twice restores the original skeleton exactly.
type MirrorCorrector struct{}

// Name implements Stage.
func (MirrorCorrector) Name() string { return "mirror" }

// Apply mirrors the skeleton's joints in place.
func (MirrorCorrector) Apply(skel *Skeleton, _ *FrameContext) {
	if skel == nil || skel.TrackingState == SkeletonNotTracked {
		return
	}

	for _, jt := range HierarchicalJointOrder {
		other := MirrorJoint(jt)
		if other <= jt {
			// Midline joint, or pair already swapped.
			continue
		}
		skel.Joints[jt], skel.Joints[other] = skel.Joints[other], skel.Joints[jt]
	}

	for jt := range skel.Joints {
		skel.Joints[jt].Position[0] = -skel.Joints[jt].Position[0]
	}
}
