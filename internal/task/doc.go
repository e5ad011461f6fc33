/*
Package task implements the goal-conditioned task state machines that drive
each environment of a batch: goal assignment, curriculum spawning, reward
shaping and termination.

Two tasks are provided. GoToXY asks the platform to reach a planar position;
GoToPose additionally asks it to match a heading. Both keep one row of state
per environment and only mutate the rows named by the EnvIDs they are given.

A step is driven in this order:

	obs, _ := t.StateObservations(state)
	rew, _ := t.ComputeReward(state, actions)
	_ = t.UpdateStatistics(stats)
	kill := t.UpdateKills()

Environments flagged for reset then go through Reset, Goals and Spawns.
The goal_reached counter holds the length of the current unbroken run of
in-tolerance steps, and an environment is killed once that run reaches
kill_after_n_steps_in_tolerance or it drifts beyond kill_dist.
*/
package task
