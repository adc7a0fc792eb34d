package review

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// IDFromName derives a stable sector id from a display name.
func IDFromName(name string) string {
	id := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(id, "-")
}

type contractInput struct {
	id              string
	name            string
	icon            string
	intent          string
	priority        SectorPriority
	sensitive       bool
	active          bool
	signals         []string
	antiPatterns    []string
	prompts         []string
	advancedPrompts []string
}

// defaultRubric is shared by all generated contracts; users refine it later
// in the editing flow.
func defaultRubric() SectorRubric {
	return SectorRubric{
		Zero:  "Avoided core behaviors and ignored standards.",
		Five:  "Mixed execution with visible inconsistency.",
		Eight: "Strong execution with one clear gap.",
		Ten:   "Elite execution aligned to intent and standards.",
	}
}

func makeContract(in contractInput) SectorContract {
	id := in.id
	if id == "" {
		id = IDFromName(in.name)
	}
	if in.priority == "" {
		in.priority = PriorityNormal
	}

	prompts := make([]PromptDefinition, 0, len(in.prompts)+len(in.advancedPrompts))
	for i, label := range in.prompts {
		prompts = append(prompts, PromptDefinition{
			ID:          fmt.Sprintf("%s-p%d", id, i+1),
			Label:       label,
			Kind:        PromptText,
			Placeholder: "Write a concise reflection...",
		})
	}
	for i, label := range in.advancedPrompts {
		prompts = append(prompts, PromptDefinition{
			ID:          fmt.Sprintf("%s-a%d", id, i+1),
			Label:       label,
			Kind:        PromptText,
			Placeholder: "Optional deeper note...",
			Advanced:    true,
		})
	}

	return SectorContract{
		ID:           id,
		Name:         in.name,
		Icon:         in.icon,
		Intent:       in.intent,
		Priority:     in.priority,
		Sensitive:    in.sensitive,
		Active:       in.active,
		Signals:      in.signals,
		AntiPatterns: in.antiPatterns,
		Prompts:      prompts,
		Rubric:       defaultRubric(),
	}
}

// StarterContracts returns the seeded contract set presented at onboarding.
func StarterContracts() []SectorContract {
	return []SectorContract{
		makeContract(contractInput{
			name:         "University",
			icon:         "📚",
			active:       true,
			priority:     PriorityHigh,
			intent:       "Show up, progress assignments, and compound real understanding.",
			signals:      []string{"Attendance", "Assignment progress", "Focus in lectures"},
			antiPatterns: []string{"Skipping classes", "No assignment tracking"},
			prompts: []string{
				"Classes attended",
				"Assignments progressed or submitted",
				"Assessment tracker updated?",
				"Lecture presence and focus",
				"Class interactions and networking",
				"Learning highlights",
			},
			advancedPrompts: []string{"What would have made it a 10?"},
		}),
		makeContract(contractInput{
			name:         "Gym & Fitness",
			icon:         "💪",
			active:       true,
			priority:     PriorityHigh,
			intent:       "Train with intent and execute recovery + nutrition around it.",
			signals:      []string{"Workouts done", "Intensity", "Nutrition"},
			antiPatterns: []string{"Missed sessions", "Undereating protein"},
			prompts: []string{
				"Workouts completed",
				"Training intensity and key PRs",
				"Nutrition (calories + protein)",
				"Bodyweight check-in",
				"Physical changes/comments",
			},
		}),
		makeContract(contractInput{
			name:         "Work",
			icon:         "💼",
			active:       true,
			priority:     PriorityHigh,
			intent:       "Move high-leverage work and income forward each week.",
			signals:      []string{"Hours worked", "Income actions", "Execution quality"},
			antiPatterns: []string{"Drift", "Low leverage busywork"},
			prompts: []string{
				"Hours worked",
				"Income generated",
				"Job search or alt-income steps",
				"Alignment with ideal work life",
			},
		}),
		makeContract(contractInput{
			name:         "Recovery & Optimisation",
			icon:         "🛌",
			active:       true,
			intent:       "Recover aggressively so output quality compounds.",
			signals:      []string{"Sleep routine", "Energy", "Recovery habits"},
			antiPatterns: []string{"Late-night drift", "No recovery protocol"},
			prompts: []string{
				"Sleep routine (lights out / wake-up)",
				"Magnesium + glycine consistency",
				"Stretching / mobility / sauna / cold",
				"Sunlight exposure",
				"Energy levels during the day",
			},
		}),
		makeContract(contractInput{
			name:         "Mindset & Focus",
			icon:         "🧠",
			active:       true,
			intent:       "Protect mental clarity and direct attention to meaningful action.",
			signals:      []string{"Journaling", "Focus quality", "Dopamine discipline"},
			antiPatterns: []string{"Compulsive scrolling", "Unstructured reactivity"},
			prompts: []string{
				"Journaling quality and frequency",
				"Mental clarity and purpose in action",
				"Scrolling/dopamine discipline",
				"Visualization or presence practice",
				"Handling of stress or chaos",
			},
		}),
	}
}

// PresetPacks returns the built-in sector packs available during onboarding
// review.
func PresetPacks() []PresetPack {
	return []PresetPack{
		{
			ID:          "week-18-framework",
			Name:        "Week 18 Framework",
			Description: "Large life-map preset from your week 18 template.",
			Sectors: []SectorContract{
				makeContract(contractInput{
					name:         "YouTube – Business & Content",
					icon:         "🎥",
					intent:       "Publish consistently and grow audience with quality iterations.",
					signals:      []string{"Uploads", "Quality", "Engagement"},
					antiPatterns: []string{"No publishing", "No idea capture"},
					prompts: []string{
						"Videos uploaded",
						"Content quality reflection",
						"Ideas generated / logged",
						"Engagement (comments, shares, DMs)",
						"Growth / metrics",
						"Creative energy / momentum",
					},
				}),
				makeContract(contractInput{
					name:         "Music (Band + Solo)",
					icon:         "🎸",
					intent:       "Advance musicianship, songs, and performance readiness.",
					signals:      []string{"Practice", "Songwriting", "Rehearsals"},
					antiPatterns: []string{"No reps", "No prep for rehearsals"},
					prompts: []string{
						"Rehearsals attended / led",
						"Songwriting progress / lyric ideas",
						"Practice done (guitar / vocals)",
						"Setlist refinement or gig prep",
						"Creative flow moments",
					},
				}),
				makeContract(contractInput{
					name:         "Semen Retention",
					icon:         "🔒",
					sensitive:    true,
					intent:       "Sustain discipline and redirect energy intentionally.",
					signals:      []string{"Streak", "Trigger control", "Energy transmutation"},
					antiPatterns: []string{"Leak cycles", "Dopamine spirals"},
					prompts: []string{
						"SR streak",
						"Urges managed / transmuted",
						"Triggers noticed and countered",
						"Energy recycled into training/content/presence",
						"Any fantasy / scrolling / leaks",
						"Internal power reflection",
					},
				}),
				makeContract(contractInput{
					name:         "Jiujitsu",
					icon:         "🥋",
					intent:       "Develop technical sharpness and mat confidence.",
					signals:      []string{"Sessions", "Technique reps", "Mental game"},
					antiPatterns: []string{"Inconsistent sessions", "No technical recall"},
					prompts: []string{
						"Sessions attended",
						"Techniques learned or tested",
						"Submissions attempted / landed",
						"Mental game (instinct, flow, aggression)",
						"Coach feedback / partner wins",
					},
				}),
				makeContract(contractInput{
					name:         "Knowledge & Growth",
					icon:         "📖",
					intent:       "Turn reading into applied knowledge and insight.",
					signals:      []string{"Pages read", "Zettels", "Applied ideas"},
					antiPatterns: []string{"Passive intake", "No synthesis"},
					prompts: []string{
						"Pages read or books studied",
						"Zettels created or refined",
						"Ideas applied in real life/content",
						"Personal insight or paradigm shift",
					},
				}),
				makeContract(contractInput{
					name:         "Leadership & Adventure",
					icon:         "🧭",
					intent:       "Initiate momentum and bring others into action.",
					signals:      []string{"Leadership moves", "Challenges proposed", "Novelty"},
					antiPatterns: []string{"Passive following", "No initiative"},
					prompts: []string{
						"Did you lead or elevate a group dynamic?",
						"Did you propose a challenge/mission/trip?",
						"1-on-1 influence moments",
						"Adventure / novelty experienced",
					},
				}),
				makeContract(contractInput{
					name:         "Social Life",
					icon:         "🕺",
					intent:       "Build meaningful connection and social momentum.",
					signals:      []string{"Events", "Depth of connection", "Group energy"},
					antiPatterns: []string{"Isolation", "Low-quality social loops"},
					prompts: []string{
						"Hangouts or events attended",
						"1-on-1 bonding moments",
						"Any group drama / awareness moments",
						"Leadership / vibe elevation",
					},
				}),
				makeContract(contractInput{
					name:         "Romance",
					icon:         "💘",
					sensitive:    true,
					intent:       "Lead interactions with integrity, standards, and emotional control.",
					signals:      []string{"Interaction quality", "Frame", "Decision quality"},
					antiPatterns: []string{"Reactive behavior", "Blurred standards"},
					prompts: []string{
						"Interactions this week",
						"Frame maintenance / magnetic energy",
						"Sexual control in romantic contexts",
						"Reflections or shifts in standards",
					},
				}),
				makeContract(contractInput{
					name:         "Aesthetics & Presentation",
					icon:         "💈",
					priority:     PriorityLow,
					intent:       "Maintain presentation standards without letting vanity dominate.",
					signals:      []string{"Grooming", "Confidence", "Consistency"},
					antiPatterns: []string{"Neglect", "Over-focus"},
					prompts: []string{
						"Outfits or grooming enhancements",
						"Comments / noticing from others",
						"Self-perception / confidence spike",
					},
				}),
			},
		},
		{
			ID:          "week-12-framework",
			Name:        "Week 12 Framework",
			Description: "Compact preset from week 12 tracking structure.",
			Sectors: []SectorContract{
				makeContract(contractInput{
					name:         "Combat Training",
					icon:         "🥋",
					intent:       "Increase technical competence and composure under pressure.",
					signals:      []string{"Sessions", "Wins", "Skill gain"},
					antiPatterns: []string{"No tracking", "No follow-up practice"},
					prompts: []string{
						"Sessions attended",
						"Key wins / submissions",
						"Skills learned / improved",
						"Areas to focus next week",
					},
				}),
				makeContract(contractInput{
					name:         "Content & Brand",
					icon:         "📱",
					intent:       "Produce and distribute content with clear strategic iteration.",
					signals:      []string{"Posts", "Growth", "Experiments"},
					antiPatterns: []string{"No output", "No feedback loop"},
					prompts: []string{
						"Posts uploaded",
						"Growth (subs/followers)",
						"Engagement handled",
						"Strategy experiment this week",
					},
				}),
			},
		},
	}
}

// FindPresetPack looks a pack up by id.
func FindPresetPack(id string) (PresetPack, bool) {
	for _, pack := range PresetPacks() {
		if pack.ID == id {
			return pack, true
		}
	}
	return PresetPack{}, false
}

// MergePresetPack appends the pack's sectors to current, skipping ids that
// already exist. Existing contracts always win.
func MergePresetPack(current []SectorContract, pack PresetPack) []SectorContract {
	seen := make(map[string]bool, len(current))
	for _, contract := range current {
		seen[contract.ID] = true
	}
	merged := append([]SectorContract(nil), current...)
	for _, contract := range pack.Sectors {
		if !seen[contract.ID] {
			seen[contract.ID] = true
			merged = append(merged, contract)
		}
	}
	return merged
}

// CustomContractInput carries the user-authored fields for a new sector.
type CustomContractInput struct {
	Name            string
	Icon            string
	Intent          string
	Priority        SectorPriority
	Sensitive       bool
	Signals         []string
	AntiPatterns    []string
	Prompts         []string
	AdvancedPrompts []string
}

// NewCustomContract builds an active contract from user input.
func NewCustomContract(in CustomContractInput) SectorContract {
	return makeContract(contractInput{
		name:            in.Name,
		icon:            in.Icon,
		intent:          in.Intent,
		priority:        in.Priority,
		sensitive:       in.Sensitive,
		active:          true,
		signals:         in.Signals,
		antiPatterns:    in.AntiPatterns,
		prompts:         in.Prompts,
		advancedPrompts: in.AdvancedPrompts,
	})
}
