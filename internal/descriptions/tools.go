package descriptions

// Tool descriptions with practical examples and use cases

const (
	ScoreParseFileDescription = `Extract the student id (学号), name (姓名) and the four category scores from one evaluation form (.docx).

**When to use:** Check a single form before adding it to a batch, or answer "what did this student score?" without producing a report.

**How scores are read:** Every table row under a category heading (品德, 专业与科研, 体艺, 劳动与实践) contributes the number in its score column. Self evaluation reads the 自评 column, batch (class) evaluation reads the 班评 column. Header rows containing 项目 and non-numeric cells such as 缺交 are skipped.

**Examples:**
• "Show the self-evaluation scores in uploads/2021001.docx"
• "Read the class evaluation for zhangsan.docx with evaluation_type batch"

**Missing data:** A form without an id or name line reports 未提取 for that field; a category with no scored rows totals 0.`

	ScoreProcessFilesDescription = `Score a batch of evaluation forms and write the spreadsheet report.

**When to use:** Collect the forms of a class into one workbook with a 总评分 summary sheet and one sheet per category (思想品德, 专业科研, 体艺, 劳动实践).

**Behavior:** Rows appear in the order the paths are given. If any form cannot be opened the whole request fails with the name of that file and no report is written. Self evaluations are rate limited; batch evaluations are limited by total upload size.

**Examples:**
• "Process every form of class 1 as a batch evaluation"
• "Build my self-evaluation report from me.docx"

**Result:** The report id (for download and deletion), the output path and a text rendering of the summary table.`

	ScoreListHistoryDescription = `List the most recently generated reports, newest first.

**When to use:** Find the id of a report to download over HTTP (/download/{id}) or to delete. Only the five newest reports are kept; older reports and their spreadsheets are removed automatically.`

	ScoreDeleteReportDescription = `Delete a generated report and its spreadsheet.

**When to use:** Remove a report that was generated from the wrong forms. Requires the admin password.`

	ScoreStatisticsDescription = `Show how many forms have been processed and the average processing time per form, overall and per evaluation type.`

	ScoreServerInfoDescription = `Show server configuration, size and rate limits, and the available tools.

**When to use:** Start here to learn which upload directory document paths are resolved against.`
)
