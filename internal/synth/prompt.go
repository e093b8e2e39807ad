// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"fmt"
	"strings"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

// buildUserMessage assembles the input-atoms block for one synthesis
// request. Atoms are grouped by kind in canonical order; each line
// carries the source paper title so the model can attribute concepts.
func buildUserMessage(atoms []types.SourcedAtom) string {
	var sections []string
	for _, kind := range types.AtomKinds {
		var lines []string
		for _, a := range atoms {
			if a.Kind != kind {
				continue
			}
			lines = append(lines, fmt.Sprintf("[%s] %s (Source: %s)", a.Kind, a.ContentEN, a.PaperTitle))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	inputAtoms := strings.Join(sections, "\n")
	return "**[Input Atoms]**\n" + inputAtoms + "\n\n**[Output Synthesis]**"
}

const synthesisSystemPrompt = `
 You are an expert Research Scientist and Innovation Consultant.
 Your goal is to synthesize disjointed scientific "atoms" (motivations, methods, ideas) into a coherent, novel research proposal.

 ### INSTRUCTIONS:
 1. **Analyze Compatibility:** Determine if the selected atoms can logically combine. (e.g., Does Atom A's method solve Atom B's problem?)
 2. **Synthesize a Novel Idea:** Propose a new framework or algorithm that merges these concepts.
 3. **Structure the Output:** You must strictly follow the structure below (Markdown format):
    - **Title**: A catchy, academic title for the new idea.
    - **Motivation**: The gap in current research and why this specific combination solves it.
    - **Core Idea**: The high-level insight (The "Aha!" moment).
    - **Methodology**: Technical details (Architecture, Training, Inference).
    - **Feasibility & Impact**: Why this matters.
 4. **Language**: The output content must be in **Academic English**.

 ### FEW-SHOT EXAMPLE (Use this as a gold standard for depth):

 **[Input Atoms]**
 1. [Motivation] (from GA-Rollback): "Current agents follow a one-pass reasoning paradigm... making systems fragile. Existing self-correction relies on static heuristics."
 2. [Method] (from GA-Rollback): "Uses a Generator-Assistant framework where the Assistant triggers a rollback if errors are detected."
 3. [Motivation] (from Memory-R1): "LLMs lack a learned mechanism for memory... heuristic-driven pipelines fail in long-horizon tasks."
 4. [Method] (from Memory-R1): "Proposes Memory-R1, using outcome-driven Reinforcement Learning (GRPO) to learn memory operations without manual labels."

 **[Output Synthesis]**

 # Title: Rollback-R1: Learning to Correct via Outcome-Driven RL

 ## 1. Motivation
 **The Gap:** While GA-Rollback introduces a promising architectural split (Generator vs. Assistant), its decision-making logic remains brittle. It relies on static heuristics (e.g., "check every 3 steps") or prompt-based reflection, which cannot adapt to task difficulty.
 **The Insight:** Memory-R1 demonstrates that discrete cognitive operations (like memory updates) can be optimized via Reinforcement Learning (RL) using only final answer correctness. We propose applying this outcome-driven learning paradigm to the "rollback" operation itself.

 ## 2. Core Idea
 We propose transforming the Assistant from a static rule-follower into a **learnable policy network**. Instead of manually defining *when* to rollback, we treat the rollback decision as an RL action space. The Assistant learns to trigger rollbacks only when they maximize the expected correctness of the final answer, effectively internalizing "System 2" monitoring as a learned intuition.

 ## 3. Methodology
 We introduce **Rollback-R1**, a framework comprising:
 1.  **Architecture:** A dual-agent setup where the Generator acts as the policy $\pi_{gen}$ and the Assistant as the critic/monitor policy $\pi_{assist}$.
 2.  **Action Space:** The Assistant outputs binary decisions $a_t \in \{\text{Pass}, \text{Rollback}\}$.
 3.  **Training (via GRPO):**
     -   For a given prompt, we sample $G$ trajectories with varying rollback behaviors.
     -   We use the **Group Relative Policy Optimization (GRPO)** algorithm to reinforce rollback decisions that lead to correct final answers.
     -   This removes the need for expensive step-by-step annotation of "errors."
 4.  **Adaptive Wait-Info:** Unlike the hardcoded "wait 6 steps" in GA-Rollback, Rollback-R1 implicitly learns to delay intervention until sufficient context is available, as premature rollbacks would yield lower rewards.

 ## 4. Feasibility & Impact
 This approach is highly feasible as it eliminates the bottleneck of manual verification data. It represents a shift from "engineered self-correction" to "learned self-correction," potentially establishing a new standard for robust reasoning agents.
 `
