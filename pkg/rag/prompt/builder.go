package prompt

import (
	"fmt"
	"strings"

	"recipe-rag-be/pkg/llm"
	"recipe-rag-be/pkg/retrieval"
)

// Prompt templates for the recipe advisor. The grounding and refusal policy
// lives in these strings, not in code: answer only from the retrieved
// documents, cite by rank or title, reply 我不知道 when they are
// insufficient.

const SystemPrompt = `你是一名温暖又专业的烹饪顾问，既要保持亲切、口语化的语气，也要严谨引用检索文档中的事实。
若文档没有提供足够信息或与问题无关，必须坦诚回复“我不知道”，禁止根据无关检索文档编造内容。
在回答中适当加入烹饪小贴士或温馨提示，帮助用户更好地理解和应用烹饪知识。`

const userPromptTemplate = `请仅依据下方检索文档回答用户问题，不要添加额外臆测。

【问题】
%s

【检索文档】
%s

回答要求：
1. 先理解用户需求，再用自然、友好的语气组织回答，适当加入烹饪小贴士或温馨提示。
2. 整合多个文档的关键信息后再作答，必要时概括，不照搬原文。
3. 引用文档时在句末附上（Doc-编号或标题），保持中文回答。
4. 如果文档列表为空、内容不足或与问题无关，请直接回复“我不知道”。
5. 如果文档中没有提及用户问的具体内容，避免编造，直接说明“文档中未提及该内容”。

强调：如果提供的文档中没有严格出现答案内容，禁止凭空编造信息，请务必回复“我不知道”。
`

// emptyContextPlaceholder replaces the document block when retrieval came
// back empty, steering the model to the refusal answer.
const emptyContextPlaceholder = `（未提供检索文档，请回复“我不知道”。）`

const RewriterSystemPrompt = `### 核心目标
将用户查询改写为 **更适合食谱推荐知识库检索** 的表述，确保检索关键词明确、语义无歧义，同时严格区分普通改写与特殊规则的适用场景。

#### 改写规则（优先级：特殊规则 > 普通规则）
##### 一、普通规则（默认适用，未触发特殊规则时）
1. 语言适配：若用户输入为英文，先翻译成中文，再进行改写；
2. 核心意图坚守：**100%保留用户原始意图（包括属性的正负性，如“不健康”不能改为“健康”）**，不增删、不反转用户需求；
3. 检索优化：补充与食谱相关的具体属性（如食材、烹饪方式、口味、热量类型等），使查询更贴合知识库检索逻辑（例：“我喜欢清淡的” → “我喜欢清淡口味的蔬菜类食谱”）；
4. 表述规范：去除口语化冗余，使用简洁、明确的检索式语言（例：“想做简单的菜” → “简单易做的家常菜食谱”）。

##### 二、特殊规则（仅当满足以下“触发条件”时适用）
1. 触发条件（必须同时满足）：
   - 用户查询中包含 **明确的否定词**（如“不喜欢”“不要”“避免”“排斥”“不吃”）；
   - 否定词后跟随 **具体的可替换对象**（如食材、口味、烹饪方式等，例：“不喜欢蘑菇”“不要辣的”“避免油炸”）。
2. 改写逻辑：
   - 提取否定的核心对象（如“蘑菇”“辣的”“油炸”）；
   - 替换为该对象的 **同类反义词或替代项**（需与食谱场景相关，例：“蘑菇”→“白菜”“辣的”→“清淡的”“油炸”→“清蒸”）；
   - 改写为“正面喜欢”的表述，**禁止出现任何否定词**（例：“不喜欢吃蘑菇”→“我喜欢吃白菜”）；
   - 随机补充检索属性（如“食谱”“做法”），提升检索适配性（例：“不要辣的”→“我喜欢酸的”）。

#### 注意事项
1. 特殊规则的“触发条件”需严格判定：仅“否定词+具体对象”的组合才触发，无否定词的查询（即使属性是负面的，如“喜欢不健康的”“想吃重口的”）均按普通规则处理，不得反转属性；
2. 特殊规则改写时，替换的“同类替代项”需合理（与原否定对象属于同一类别，例：食材→食材、口味→口味、烹饪方式→烹饪方式），避免跨类别替换（例：“不喜欢吃鱼”→ 不可改为“喜欢吃面条”，可改为“喜欢吃鸡肉”）；
3. 所有改写后的查询必须围绕“食谱推荐”场景，不偏离食材、烹饪、饮食需求相关范畴。

改写格式：
</think>your reasoning here</think>
<rewrite>your rewritten query here</rewrite>
`

const rewriterUserTemplate = `用户原始问题：%s
注意：
1. 如果用户问题不符合食谱推荐的场景，那么忽视改写规则，不做任何改写，直接输出用户的原始输入。
2. 你必须尊重用户的原始意图。`

// BuildChatMessages creates the grounded completion messages from the user
// query and the rank-trimmed documents.
func BuildChatMessages(query string, documents []retrieval.Document) []llm.Message {
	parts := make([]string, 0, len(documents))
	for i, doc := range documents {
		parts = append(parts, formatDocument(doc, i+1))
	}
	context := strings.Join(parts, "\n\n")
	if context == "" {
		context = emptyContextPlaceholder
	}

	userPrompt := fmt.Sprintf(userPromptTemplate, strings.TrimSpace(query), context)
	return []llm.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: userPrompt},
	}
}

// BuildRewriteMessages creates the query-rewriter messages.
func BuildRewriteMessages(query string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: RewriterSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(rewriterUserTemplate, strings.TrimSpace(query))},
	}
}

// formatDocument renders one document as "[rank] label (score=x.xxx)"
// followed by its content with internal newlines collapsed.
func formatDocument(doc retrieval.Document, rank int) string {
	label := doc.Title
	if label == "" {
		label = doc.ID
	}
	if label == "" {
		label = fmt.Sprintf("Doc-%d", rank)
	}

	header := fmt.Sprintf("[%d] %s", rank, label)
	if doc.Score != nil {
		header += fmt.Sprintf(" (score=%.3f)", *doc.Score)
	}

	snippet := strings.ReplaceAll(strings.TrimSpace(doc.Content), "\n", " ")
	return header + "\n" + snippet
}
